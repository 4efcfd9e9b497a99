package models

// Model identifiers accepted in a training request. The catalog is fixed;
// the dashboard renders one checkbox per entry.
const (
	ModelSVM          = "svm"
	ModelDecisionTree = "dt"
	ModelRandomForest = "rf"
	ModelAdaBoost     = "ada"
	ModelGradBoost    = "gbr"
	ModelMLP          = "mlp"
)

// ModelSpec describes one catalog entry.
type ModelSpec struct {
	ID          string `json:"id"`
	Regressor   string `json:"regressor"`
	Classifier  string `json:"classifier"`
	Heavy       bool   `json:"heavy"` // excluded from lightning mode by the UI
	Description string `json:"description"`
}

// Catalog lists every model the dashboard can train, in checkbox order.
var Catalog = []ModelSpec{
	{
		ID:         ModelSVM,
		Regressor:  "SVR",
		Classifier: "SVC",
		Description: "Support Vector Regression (SVR) is a linear model that can be used for both classification and regression. " +
			"The goal of SVR is to find a hyperplane that best fits the data, and then predict the target variable based on the hyperplane.",
	},
	{
		ID:         ModelAdaBoost,
		Regressor:  "AdaBoostRegressor",
		Classifier: "AdaBoostClassifier",
		Description: "An AdaBoost regressor is a meta-estimator that begins by fitting a regressor on the original dataset and then " +
			"fits additional copies of the regressor on the same dataset but where the weights of instances are adjusted according " +
			"to the error of the current prediction. As such, subsequent regressors focus more on difficult cases.",
	},
	{
		ID:         ModelRandomForest,
		Regressor:  "RandomForestRegressor",
		Classifier: "RandomForestClassifier",
		Heavy:      true,
		Description: "A random forest is a meta estimator that fits a number of decision tree classifiers on various sub-samples " +
			"of the dataset and uses averaging to improve the predictive accuracy and control over-fitting.",
	},
	{
		ID:         ModelGradBoost,
		Regressor:  "GradientBoostingRegressor",
		Classifier: "GradientBoostingClassifier",
		Description: "This estimator builds an additive model in a forward stage-wise fashion; it allows for the optimization of " +
			"arbitrary differentiable loss functions. In each stage a regression tree is fit on the negative gradient of the given loss function.",
	},
	{
		ID:         ModelDecisionTree,
		Regressor:  "DecisionTreeRegressor",
		Classifier: "DecisionTreeClassifier",
		Description: "A decision tree is a flowchart-like structure where each internal node represents a feature or attribute and " +
			"each branch represents a decision rule. The tree is grown by recursively partitioning the set of observations into subsets " +
			"according to the values of the chosen features, stopping when some condition is met.",
	},
	{
		ID:         ModelMLP,
		Regressor:  "MLPRegressor",
		Classifier: "MLPClassifier",
		Heavy:      true,
		Description: "A multilayer perceptron (MLP) is a feedforward artificial neural network with one or more hidden layers. " +
			"It is a supervised learning algorithm that can be used for regression and classification tasks.",
	},
}

// SpecFor looks up a catalog entry by model ID.
func SpecFor(id string) (ModelSpec, bool) {
	for _, s := range Catalog {
		if s.ID == id {
			return s, true
		}
	}
	return ModelSpec{}, false
}

// DisplayName returns the presentation name of the model for a task,
// e.g. "GradientBoostingRegressor" for gbr on a regression run.
func (s ModelSpec) DisplayName(task TaskType) string {
	if task == TaskClassification {
		return s.Classifier
	}
	return s.Regressor
}

// CatalogIDs returns every model ID in catalog order.
func CatalogIDs() []string {
	ids := make([]string, 0, len(Catalog))
	for _, s := range Catalog {
		ids = append(ids, s.ID)
	}
	return ids
}

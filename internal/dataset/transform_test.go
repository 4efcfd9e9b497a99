package dataset

import (
	"math"
	"testing"
)

func TestImputeNumeric(t *testing.T) {
	tests := []struct {
		strategy string
		want     float64
	}{
		{ImputeMean, 20},
		{ImputeMedian, 20},
		{ImputeMode, 10},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			ds := mustParse(t, "v\n10\n10\n20\n30\n30\nna\n")
			// present values 10,10,20,30,30: mean 20, median 20, mode 10
			if err := ds.ImputeNumeric(tt.strategy); err != nil {
				t.Fatalf("ImputeNumeric failed: %v", err)
			}
			c, _ := ds.Column("v")
			if c.Nums[5] != tt.want {
				t.Errorf("expected fill value %v, got %v", tt.want, c.Nums[5])
			}
		})
	}

	ds := mustParse(t, "v\n1\n2\n")
	if err := ds.ImputeNumeric("average"); err == nil {
		t.Error("expected error for an unknown strategy")
	}
}

func TestImputeCategoricalMode(t *testing.T) {
	ds := mustParse(t, "city\nmoscow\nmoscow\nkazan\nna\n")

	if err := ds.ImputeCategorical(ImputeMode); err != nil {
		t.Fatalf("ImputeCategorical failed: %v", err)
	}
	c, _ := ds.Column("city")
	if c.Strs[3] != "moscow" {
		t.Errorf("expected mode fill moscow, got %q", c.Strs[3])
	}
}

func TestImputeCategoricalDrop(t *testing.T) {
	ds := mustParse(t, "x,city\n1,moscow\n2,na\n3,kazan\n")

	if err := ds.ImputeCategorical(ImputeDrop); err != nil {
		t.Fatalf("ImputeCategorical failed: %v", err)
	}
	if ds.Rows() != 2 {
		t.Fatalf("expected 2 rows after dropping missing, got %d", ds.Rows())
	}
	x, _ := ds.Column("x")
	if x.Nums[0] != 1 || x.Nums[1] != 3 {
		t.Errorf("wrong rows survived: %v", x.Nums)
	}
}

func TestRemoveOutliers(t *testing.T) {
	ds := mustParse(t, "v\n10\n11\n9\n10\n12\n9\n11\n10\n1000\n")

	removed := ds.RemoveOutliers(2)
	if removed != 1 {
		t.Fatalf("expected 1 outlier removed, got %d", removed)
	}
	c, _ := ds.Column("v")
	for _, v := range c.Nums {
		if v == 1000 {
			t.Error("outlier row still present")
		}
	}
}

func TestNormalizeMinMax(t *testing.T) {
	ds := mustParse(t, "v\n10\n20\n30\n")

	if err := ds.Normalize(NormalizeMinMax); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	c, _ := ds.Column("v")
	want := []float64{0, 0.5, 1}
	for i, w := range want {
		if math.Abs(c.Nums[i]-w) > 1e-12 {
			t.Errorf("row %d: expected %v, got %v", i, w, c.Nums[i])
		}
	}
}

func TestNormalizeZScore(t *testing.T) {
	ds := mustParse(t, "v\n1\n2\n3\n4\n5\n")

	if err := ds.Normalize(NormalizeZScore); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	c, _ := ds.Column("v")
	var mean float64
	for _, v := range c.Nums {
		mean += v
	}
	mean /= float64(len(c.Nums))
	if math.Abs(mean) > 1e-12 {
		t.Errorf("expected zero mean after zscore, got %v", mean)
	}
}

func TestApplyOrderedActions(t *testing.T) {
	ds := mustParse(t, "age,city,noise\n30,moscow,1\n25,kazan,2\nna,moscow,3\n")

	actions := []Action{
		{Op: OpImputeNumeric, Strategy: ImputeMean},
		{Op: OpLabelEncode, Column: "city"},
		{Op: OpDrop, Columns: []string{"noise"}},
	}
	if err := ds.Apply(actions); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if ds.HasMissing() {
		t.Error("expected no missing values after imputation")
	}
	city, _ := ds.Column("city")
	if !city.Numeric {
		t.Error("expected city to be encoded")
	}
	if _, ok := ds.Column("noise"); ok {
		t.Error("expected noise column to be dropped")
	}
}

func TestApplyFailsOnUnknownOp(t *testing.T) {
	ds := mustParse(t, "a\n1\n")
	err := ds.Apply([]Action{{Op: "pivot"}})
	if err == nil {
		t.Fatal("expected error for an unknown op")
	}
}

func TestApplyFailsOnUnknownColumn(t *testing.T) {
	ds := mustParse(t, "a\n1\n2\n")
	err := ds.Apply([]Action{{Op: OpLabelEncode, Column: "b"}})
	if err == nil {
		t.Fatal("expected error for an unknown column")
	}
}

package dataset

import "testing"

func TestMatrix(t *testing.T) {
	ds := mustParse(t, "a,b,y\n1,10,100\n2,20,200\n3,30,300\n")

	X, y, names, err := ds.Matrix("y")
	if err != nil {
		t.Fatalf("Matrix failed: %v", err)
	}
	n, p := X.Dims()
	if n != 3 || p != 2 {
		t.Fatalf("expected 3x2 matrix, got %dx%d", n, p)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected feature names [a b], got %v", names)
	}
	if y[1] != 200 {
		t.Errorf("expected y[1]=200, got %v", y[1])
	}
	if X.At(2, 1) != 30 {
		t.Errorf("expected X[2][1]=30, got %v", X.At(2, 1))
	}
}

func TestMatrixErrors(t *testing.T) {
	tests := []struct {
		name   string
		csv    string
		target string
	}{
		{"missing target column", "a\n1\n", "y"},
		{"categorical feature", "city,y\nmoscow,1\nkazan,2\n", "y"},
		{"categorical target", "a,city\n1,moscow\n2,kazan\n", "city"},
		{"missing feature cell", "a,y\n1,1\nna,2\n", "y"},
		{"missing target cell", "a,y\n1,1\n2,na\n", "y"},
		{"no features", "y\n1\n2\n", "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := mustParse(t, tt.csv)
			if _, _, _, err := ds.Matrix(tt.target); err == nil {
				t.Error("expected error")
			}
		})
	}
}

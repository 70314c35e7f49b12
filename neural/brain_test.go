package neural

import (
	"math/rand"
	"testing"

	"github.com/yaricom/goNEAT/v4/neat/network"
)

func TestCreateBrainGenome(t *testing.T) {
	tests := []struct {
		name      string
		prob      float64
		wantGenes int
	}{
		{"fully connected", 1.0, BrainInputs * BrainOutputs},
		{"never connected still gets one link", 0.0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			genome := CreateBrainGenome(1, tt.prob, rand.New(rand.NewSource(1)))

			if genome.Id != 1 {
				t.Errorf("expected genome ID 1, got %d", genome.Id)
			}
			if len(genome.Nodes) != BrainInputs+BrainOutputs {
				t.Errorf("expected %d nodes, got %d", BrainInputs+BrainOutputs, len(genome.Nodes))
			}
			if len(genome.Genes) != tt.wantGenes {
				t.Errorf("expected %d genes, got %d", tt.wantGenes, len(genome.Genes))
			}

			inputs, outputs := 0, 0
			for _, n := range genome.Nodes {
				switch n.NeuronType {
				case network.InputNeuron:
					inputs++
				case network.OutputNeuron:
					outputs++
				}
			}
			if inputs != BrainInputs || outputs != BrainOutputs {
				t.Errorf("inputs=%d outputs=%d", inputs, outputs)
			}
		})
	}
}

func TestCreateBrainGenomeDeterministic(t *testing.T) {
	a := CreateBrainGenome(1, 0.5, rand.New(rand.NewSource(9)))
	b := CreateBrainGenome(1, 0.5, rand.New(rand.NewSource(9)))

	if len(a.Genes) != len(b.Genes) {
		t.Fatalf("gene counts differ: %d vs %d", len(a.Genes), len(b.Genes))
	}
	for i := range a.Genes {
		if a.Genes[i].Link.ConnectionWeight != b.Genes[i].Link.ConnectionWeight {
			t.Errorf("gene %d weight differs", i)
		}
		if a.Genes[i].InnovationNum != b.Genes[i].InnovationNum {
			t.Errorf("gene %d innovation differs", i)
		}
	}
}

func TestBrainControllerDecide(t *testing.T) {
	genome := CreateBrainGenome(1, 1.0, rand.New(rand.NewSource(2)))
	ctrl, err := NewBrainController(genome)
	if err != nil {
		t.Fatalf("NewBrainController failed: %v", err)
	}

	inputs := [][]float64{
		{540, 100, 200, 600},
		{0, 0, 0, 0},
		{1030, 700, 10, 5},
	}
	for _, in := range inputs {
		out, err := ctrl.Decide(in)
		if err != nil {
			t.Fatalf("Decide(%v) failed: %v", in, err)
		}
		if len(out) != BrainOutputs {
			t.Fatalf("expected %d outputs, got %d", BrainOutputs, len(out))
		}
		if out[0] < 0 || out[0] > 1 {
			t.Errorf("output %v outside sigmoid range", out[0])
		}
	}

	// Flushed between calls: same input, same output.
	first, _ := ctrl.Decide(inputs[0])
	ctrl.Decide(inputs[2])
	again, _ := ctrl.Decide(inputs[0])
	if first[0] != again[0] {
		t.Errorf("output depends on history: %v vs %v", first[0], again[0])
	}

	if ctrl.NodeCount() != BrainInputs+BrainOutputs {
		t.Errorf("NodeCount = %d", ctrl.NodeCount())
	}
	if ctrl.LinkCount() != BrainInputs*BrainOutputs {
		t.Errorf("LinkCount = %d", ctrl.LinkCount())
	}
}

func TestBrainControllerWrongInputCount(t *testing.T) {
	ctrl, err := NewBrainController(CreateBrainGenome(1, 1.0, rand.New(rand.NewSource(3))))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctrl.Decide([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for wrong input count")
	}
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueUint(t *testing.T) {
	tests := []struct {
		name string
		in   []uint
		want []uint
	}{
		{"empty", []uint{}, []uint{}},
		{"no duplicates", []uint{1, 2, 3}, []uint{1, 2, 3}},
		{"keeps first-seen order", []uint{5, 1, 5, 2, 1, 5}, []uint{5, 1, 2}},
		{"all the same", []uint{9, 9, 9}, []uint{9}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, UniqueUint(test.in))
		})
	}
}

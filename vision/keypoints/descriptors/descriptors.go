// Package descriptors contains binary feature descriptors and distances between them.
package descriptors

import (
	"github.com/pkg/errors"

	"go.viam.com/monovo/utils"
)

// Descriptor is a bit-packed binary descriptor; bit i lives in word i/64 at position i%64.
type Descriptor []uint64

// Descriptors is a list of descriptors, one per keypoint.
type Descriptors []Descriptor

// NBits returns the number of bits in the descriptor.
func (d Descriptor) NBits() int {
	return 64 * len(d)
}

// Bit returns bit i of the descriptor.
func (d Descriptor) Bit(i int) uint64 {
	return (d[i/64] >> (i % 64)) & 1
}

// SetBit sets bit i of the descriptor to 1.
func (d Descriptor) SetBit(i int) {
	d[i/64] |= 1 << (i % 64)
}

// HammingDistance returns the number of bits that differ between two descriptors.
func HammingDistance(d1, d2 Descriptor) (int, error) {
	return utils.HammingDistance(d1, d2)
}

// DescriptorsHammingDistance computes the pairwise hamming distances between 2 sets of descriptors.
func DescriptorsHammingDistance(desc1, desc2 Descriptors) ([][]int, error) {
	distances := make([][]int, len(desc1))
	for i := range desc1 {
		distances[i] = make([]int, len(desc2))
		for j := range desc2 {
			d, err := HammingDistance(desc1[i], desc2[j])
			if err != nil {
				return nil, errors.Wrapf(err, "descriptors %d and %d", i, j)
			}
			distances[i][j] = d
		}
	}
	return distances, nil
}

// CheckUniformLength returns an error if descriptors do not all have the same number of words.
func CheckUniformLength(desc Descriptors) error {
	for i := range desc {
		if len(desc[i]) != len(desc[0]) {
			return errors.Errorf("descriptor %d has %d words, expected %d", i, len(desc[i]), len(desc[0]))
		}
	}
	return nil
}

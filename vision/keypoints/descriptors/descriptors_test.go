package descriptors

import (
	"testing"

	"go.viam.com/test"
)

func TestBits(t *testing.T) {
	d := make(Descriptor, 4)
	test.That(t, d.NBits(), test.ShouldEqual, 256)
	d.SetBit(0)
	d.SetBit(65)
	d.SetBit(255)
	test.That(t, d.Bit(0), test.ShouldEqual, 1)
	test.That(t, d.Bit(1), test.ShouldEqual, 0)
	test.That(t, d.Bit(65), test.ShouldEqual, 1)
	test.That(t, d.Bit(255), test.ShouldEqual, 1)
	test.That(t, d[1], test.ShouldEqual, uint64(2))
}

func TestDescriptorsHammingDistance(t *testing.T) {
	desc1 := Descriptors{{0b1111}, {0}}
	desc2 := Descriptors{{0b0001}, {0b1111}, {0}}
	distances, err := DescriptorsHammingDistance(desc1, desc2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, distances, test.ShouldResemble, [][]int{{3, 0, 4}, {1, 4, 0}})

	_, err = DescriptorsHammingDistance(Descriptors{{1, 2}}, desc2)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, CheckUniformLength(desc2), test.ShouldBeNil)
	test.That(t, CheckUniformLength(Descriptors{{1}, {1, 2}}), test.ShouldNotBeNil)
	test.That(t, CheckUniformLength(nil), test.ShouldBeNil)
}

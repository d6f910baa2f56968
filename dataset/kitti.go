// Package dataset reads image sequences laid out like the KITTI odometry benchmark.
//
//	<root>/<name>/image_<camera>/*.png
//	<root>/<name>/calib.txt
//	<root>/<name>/times.txt
//	<root>/poses/<name>.txt
//
// Poses and times are optional.
package dataset

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/monovo/rimage"
	"go.viam.com/monovo/rimage/transform"
)

// Sequence is a KITTI odometry sequence seen by one camera.
type Sequence struct {
	Name       string
	Camera     int
	Intrinsics *transform.PinholeCameraIntrinsics
	// Timestamps are in seconds from the first frame; empty when times.txt is missing.
	Timestamps []float64

	images []string
	poses  []*mat.Dense
}

// OpenKITTISequence lists the frames of sequence name under root and reads its calibration, ground
// truth poses and timestamps.
func OpenKITTISequence(root, name string, camera int) (*Sequence, error) {
	if camera < 0 || camera > 3 {
		return nil, errors.Errorf("camera should be in [0, 3], got %d", camera)
	}
	seqDir := filepath.Join(root, name)
	images, err := filepath.Glob(filepath.Join(seqDir, fmt.Sprintf("image_%d", camera), "*.png"))
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.Errorf("no images in %q", filepath.Join(seqDir, fmt.Sprintf("image_%d", camera)))
	}
	sort.Strings(images)
	seq := &Sequence{Name: name, Camera: camera, images: images}

	err = readFile(filepath.Join(seqDir, "calib.txt"), func(r io.Reader) error {
		var err error
		seq.Intrinsics, err = ParseCalibration(r, camera)
		return err
	})
	if err != nil {
		return nil, err
	}
	first, err := seq.Frame(0)
	if err != nil {
		return nil, err
	}
	seq.Intrinsics.Width = first.Bounds().Dx()
	seq.Intrinsics.Height = first.Bounds().Dy()

	err = readOptionalFile(filepath.Join(root, "poses", name+".txt"), func(r io.Reader) error {
		var err error
		seq.poses, err = ParsePoses(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(seq.poses) > 0 && len(seq.poses) != len(images) {
		return nil, errors.Errorf("sequence %s has %d images but %d poses", name, len(images), len(seq.poses))
	}
	err = readOptionalFile(filepath.Join(seqDir, "times.txt"), func(r io.Reader) error {
		var err error
		seq.Timestamps, err = ParseTimestamps(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// NumFrames returns the number of images of the sequence.
func (seq *Sequence) NumFrames() int {
	return len(seq.images)
}

// Frame reads image i.
func (seq *Sequence) Frame(i int) (image.Image, error) {
	if i < 0 || i >= len(seq.images) {
		return nil, errors.Errorf("frame %d out of range [0, %d)", i, len(seq.images))
	}
	return rimage.ReadImageFromFile(seq.images[i])
}

// GroundTruth returns the 4x4 world pose of camera 0 at frame i.
func (seq *Sequence) GroundTruth(i int) (*mat.Dense, bool) {
	if i < 0 || i >= len(seq.poses) {
		return nil, false
	}
	return mat.DenseCopyOf(seq.poses[i]), true
}

// HasGroundTruth returns whether poses were found for the sequence.
func (seq *Sequence) HasGroundTruth() bool {
	return len(seq.poses) > 0
}

func readFile(path string, parse func(io.Reader) error) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	if err := parse(f); err != nil {
		return errors.Wrapf(err, "cannot parse %q", path)
	}
	return nil
}

func readOptionalFile(path string, parse func(io.Reader) error) error {
	err := readFile(path, parse)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ParsePoses reads one pose per line, as the first 3 rows of a 4x4 transform in row major order.
func ParsePoses(r io.Reader) ([]*mat.Dense, error) {
	var poses []*mat.Dense
	err := scanLines(r, func(lineNum int, fields []string) error {
		values, err := parseFloats(fields, 12)
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNum)
		}
		poses = append(poses, mat.NewDense(4, 4, append(values, 0, 0, 0, 1)))
		return nil
	})
	return poses, err
}

// ParseCalibration reads the intrinsics of camera from its "P<camera>:" projection matrix. The
// image size is left to the caller.
func ParseCalibration(r io.Reader, camera int) (*transform.PinholeCameraIntrinsics, error) {
	key := fmt.Sprintf("P%d:", camera)
	var intrinsics *transform.PinholeCameraIntrinsics
	err := scanLines(r, func(lineNum int, fields []string) error {
		if fields[0] != key {
			return nil
		}
		p, err := parseFloats(fields[1:], 12)
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNum)
		}
		intrinsics = &transform.PinholeCameraIntrinsics{Fx: p[0], Ppx: p[2], Fy: p[5], Ppy: p[6]}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if intrinsics == nil {
		return nil, errors.Errorf("no projection matrix for camera %d", camera)
	}
	return intrinsics, nil
}

// ParseTimestamps reads one timestamp, in seconds, per line.
func ParseTimestamps(r io.Reader) ([]float64, error) {
	var times []float64
	err := scanLines(r, func(lineNum int, fields []string) error {
		values, err := parseFloats(fields, 1)
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNum)
		}
		times = append(times, values[0])
		return nil
	})
	return times, err
}

// scanLines calls f with the fields of every non blank line.
func scanLines(r io.Reader, f func(lineNum int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := f(lineNum, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) != n {
		return nil, errors.Errorf("expected %d values, got %d", n, len(fields))
	}
	values := make([]float64, n)
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

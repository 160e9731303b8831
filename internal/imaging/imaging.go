// Package imaging reads the tumor measurements produced by the segmentation step.
package imaging

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/pancstage/pancstage/schema"
	"golang.org/x/text/unicode/norm"
)

// recordFields is the number of '|'-separated values in a measurement record:
// dice|volume_mm3|shape|voxel_count|spacing|mid_slice|size_x|size_y|size_z|max_diameter
const recordFields = 10

// notAvailable marks a missing dice score.
const notAvailable = "NA"

// ErrMalformedRecord is returned when a measurement record cannot be parsed.
var ErrMalformedRecord = errors.New("malformed segmentation record")

// normalizeRecord applies NFKC and drops control characters other than the separator.
func normalizeRecord(record string) string {
	record = norm.NFKC.String(record)
	record = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, record)
	return strings.TrimSpace(record)
}

// ParseMeasurement parses one segmentation record.
func ParseMeasurement(record string) (schema.TumorMeasurement, error) {
	var m schema.TumorMeasurement

	parts := strings.Split(normalizeRecord(record), "|")
	if len(parts) != recordFields {
		return m, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, recordFields, len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if parts[0] != "" && !strings.EqualFold(parts[0], notAvailable) {
		dice, err := parseFloat("dice", parts[0])
		if err != nil {
			return m, err
		}
		m.Dice = &dice
	}

	var err error
	if m.VolumeMM3, err = parseFloat("volume_mm3", parts[1]); err != nil {
		return m, err
	}
	m.Shape = parts[2]
	if m.VoxelCount, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
		return m, fmt.Errorf("%w: voxel_count %q", ErrMalformedRecord, parts[3])
	}
	m.Spacing = parts[4]
	if m.MiddleSlice, err = strconv.Atoi(parts[5]); err != nil {
		return m, fmt.Errorf("%w: mid_slice %q", ErrMalformedRecord, parts[5])
	}
	for i, name := range []string{"size_x", "size_y", "size_z"} {
		if m.SizeMM[i], err = parseFloat(name, parts[6+i]); err != nil {
			return m, err
		}
	}
	if m.MaxDiameterMM, err = parseFloat("max_diameter", parts[9]); err != nil {
		return m, err
	}

	if m.VolumeMM3 < 0 || m.VoxelCount < 0 || m.MaxDiameterMM < 0 {
		return m, fmt.Errorf("%w: negative measurement", ErrMalformedRecord)
	}
	return m, nil
}

// parseFloat parses a finite measurement value.
func parseFloat(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRecord, name, value)
	}
	return v, nil
}

// ReadMeasurement parses the first record from r.
func ReadMeasurement(r io.Reader) (schema.TumorMeasurement, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return schema.TumorMeasurement{}, err
	}
	return ParseMeasurement(string(data))
}

// LoadMeasurement reads a measurement record from a file.
func LoadMeasurement(path string) (schema.TumorMeasurement, error) {
	file, err := os.Open(path)
	if err != nil {
		return schema.TumorMeasurement{}, fmt.Errorf("failed to open segmentation record: %w", err)
	}
	defer func() { _ = file.Close() }()
	return ReadMeasurement(file)
}

// Describe renders a short human-readable summary of the measurement.
func Describe(m schema.TumorMeasurement) string {
	return fmt.Sprintf("Tumor volume: %.2f mL, maximum diameter: %.2f mm (%.2f x %.2f x %.2f mm, %d voxels)",
		m.VolumeML(), m.MaxDiameterMM, m.SizeMM[0], m.SizeMM[1], m.SizeMM[2], m.VoxelCount)
}

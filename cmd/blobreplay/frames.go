package main

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/LdDl/blob-tracker/mot"
)

var expectedHeader = []string{"frame", "x", "y", "bounds", "hull"}

// maxFrameSpan caps distance between first and last frame numbers of a log.
// Every frame in between is replayed, so the whole range is allocated.
const maxFrameSpan = 1 << 20

// frame is a set of detections observed at once
type frame struct {
	number     int
	detections []mot.Detection
}

// readFrames parses detections log. Rows may come in any order; frames without rows are returned as empty ones
func readFrames(r io.Reader) ([]frame, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Can't read header")
	}
	if len(header) < 3 || len(header) > len(expectedHeader) {
		return nil, errors.Errorf("unexpected header %q", strings.Join(header, ";"))
	}
	for i := range header {
		if strings.TrimSpace(header[i]) != expectedHeader[i] {
			return nil, errors.Errorf("unexpected header column %d: %q, expected %q", i+1, header[i], expectedHeader[i])
		}
	}

	byNumber := make(map[int][]mot.Detection)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Can't read row")
		}
		line, _ := reader.FieldPos(0)
		number, detection, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		byNumber[number] = append(byNumber[number], detection)
	}
	if len(byNumber) == 0 {
		return nil, nil
	}

	numbers := make([]int, 0, len(byNumber))
	for number := range byNumber {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	first, last := numbers[0], numbers[len(numbers)-1]
	if last-first >= maxFrameSpan {
		return nil, errors.Errorf("frame range %d..%d exceeds %d frames", first, last, maxFrameSpan)
	}
	frames := make([]frame, 0, last-first+1)
	for number := first; number <= last; number++ {
		frames = append(frames, frame{number: number, detections: byNumber[number]})
	}
	return frames, nil
}

func parseRecord(record []string) (int, mot.Detection, error) {
	if len(record) < 3 {
		return 0, mot.Detection{}, errors.Errorf("expected at least 3 columns, got %d", len(record))
	}
	number, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return 0, mot.Detection{}, errors.Wrap(err, "Can't parse frame number")
	}
	if number < 0 {
		return 0, mot.Detection{}, errors.Errorf("negative frame number %d", number)
	}
	position, err := parsePoint(record[1], record[2])
	if err != nil {
		return 0, mot.Detection{}, errors.Wrap(err, "Can't parse position")
	}
	detection := mot.NewDetection(position)
	if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
		bounds, err := parseBounds(record[3])
		if err != nil {
			return 0, mot.Detection{}, errors.Wrap(err, "Can't parse bounds")
		}
		detection.Bounds = &bounds
	}
	if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
		hull, err := parseHull(record[4])
		if err != nil {
			return 0, mot.Detection{}, errors.Wrap(err, "Can't parse hull")
		}
		detection.Hull = hull
	}
	return number, detection, nil
}

func parsePoint(xs, ys string) (mot.Point, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return mot.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return mot.Point{}, err
	}
	return mot.NewPoint(x, y), nil
}

// parseBounds parses "x,y,w,h"
func parseBounds(s string) (mot.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return mot.Rectangle{}, errors.Errorf("expected 4 values, got %d", len(parts))
	}
	values := [4]float64{}
	for i := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return mot.Rectangle{}, err
		}
		values[i] = v
	}
	return mot.NewRect(values[0], values[1], values[2], values[3]), nil
}

// parseHull parses "x,y|x,y|..."
func parseHull(s string) (mot.Hull, error) {
	parts := strings.Split(s, "|")
	hull := make(mot.Hull, 0, len(parts))
	for _, part := range parts {
		xy := strings.Split(part, ",")
		if len(xy) != 2 {
			return nil, errors.Errorf("expected pair of values, got %q", part)
		}
		pt, err := parsePoint(xy[0], xy[1])
		if err != nil {
			return nil, err
		}
		hull = append(hull, pt)
	}
	return hull, nil
}

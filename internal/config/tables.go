package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"keyforge/internal/errs"
	"keyforge/internal/model"
)

// EncodableRecord is one raw line of the encodables table: a name, its
// element sequence (space-separated element names), a frequency, and two
// optional fields.
type EncodableRecord struct {
	Name           string
	ElementNames   []string
	Frequency      uint64
	ShortCodeLevel int // model.NoShortLevel if absent
	Importance     float64
}

// LoadEncodables parses tab-separated {name, element_sequence, frequency,
// short_code_level?, importance?} records, one per line.
func LoadEncodables(r io.Reader) ([]EncodableRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var records []EncodableRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, errs.MalformedRecord(lineNo, fmt.Errorf("expected at least 3 tab-separated fields, got %d", len(fields)))
		}
		freq, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, errs.MalformedRecord(lineNo, err)
		}
		rec := EncodableRecord{
			Name:           fields[0],
			ElementNames:   strings.Fields(fields[1]),
			Frequency:      freq,
			ShortCodeLevel: model.NoShortLevel,
			Importance:     1.0,
		}
		if len(fields) > 3 && fields[3] != "" {
			level, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, errs.MalformedRecord(lineNo, err)
			}
			rec.ShortCodeLevel = level
		}
		if len(fields) > 4 && fields[4] != "" {
			importance, err := strconv.ParseFloat(fields[4], 64)
			if err != nil {
				return nil, errs.MalformedRecord(lineNo, err)
			}
			rec.Importance = importance
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// KeyDistributionRecord is one row of the key-distribution table: a key
// character with its ideal frequency share and asymmetric penalty weights.
type KeyDistributionRecord struct {
	Key          rune
	Ideal        float64
	OverPenalty  float64
	UnderPenalty float64
}

// LoadKeyDistribution parses tab-separated {key, ideal, over_penalty,
// under_penalty} records.
func LoadKeyDistribution(r io.Reader) ([]KeyDistributionRecord, error) {
	scanner := bufio.NewScanner(r)
	var out []KeyDistributionRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return nil, errs.MalformedRecord(lineNo, fmt.Errorf("expected 4 fields, got %d", len(fields)))
		}
		keyRunes := []rune(fields[0])
		if len(keyRunes) != 1 {
			return nil, errs.MalformedRecord(lineNo, fmt.Errorf("key field must be one character, got %q", fields[0]))
		}
		ideal, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errs.MalformedRecord(lineNo, err)
		}
		over, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errs.MalformedRecord(lineNo, err)
		}
		under, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, errs.MalformedRecord(lineNo, err)
		}
		out = append(out, KeyDistributionRecord{Key: keyRunes[0], Ideal: ideal, OverPenalty: over, UnderPenalty: under})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// PairEquivalenceRecord is one row of the pair-equivalence table: an
// ordered pair of keys and their equivalence weight.
type PairEquivalenceRecord struct {
	First  rune
	Second rune
	Value  float64
}

// LoadPairEquivalence parses tab-separated {first, second, value} records.
func LoadPairEquivalence(r io.Reader) ([]PairEquivalenceRecord, error) {
	scanner := bufio.NewScanner(r)
	var out []PairEquivalenceRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, errs.MalformedRecord(lineNo, fmt.Errorf("expected 3 fields, got %d", len(fields)))
		}
		first := []rune(fields[0])
		second := []rune(fields[1])
		if len(first) != 1 || len(second) != 1 {
			return nil, errs.MalformedRecord(lineNo, fmt.Errorf("key fields must be one character each"))
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, errs.MalformedRecord(lineNo, err)
		}
		out = append(out, PairEquivalenceRecord{First: first[0], Second: second[0], Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

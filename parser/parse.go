package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"roi-calculator/errors"
	"roi-calculator/metrics"
	"roi-calculator/models"
)

// ParseChannels reads channel volumes from CSV data.
// Each record is "id, name, daily_leads, unresolved_leads" with an optional
// trailing icon tag. Lines starting with '#' are headers/comments.
// Counts are not range checked: negative values and unresolved leads above
// daily leads are accepted as given.
func ParseChannels(r io.Reader) ([]models.Channel, error) {
	start := time.Now()
	defer func() { metrics.ParserDurationSeconds.Observe(time.Since(start).Seconds()) }()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	var channels []models.Channel
	seen := make(map[string]bool)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues("csv").Inc()
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)

		ch, err := parseChannelRecord(record)
		if err != nil {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(err)).Inc()
			return nil, &errors.ParseError{Line: line, Record: record, Err: err}
		}
		if seen[ch.ID] {
			metrics.ParserErrorsTotal.WithLabelValues(errorType(errors.ErrDuplicateChannel)).Inc()
			return nil, &errors.ParseError{
				Line:   line,
				Record: record,
				Err:    fmt.Errorf("%w: %s", errors.ErrDuplicateChannel, ch.ID),
			}
		}
		seen[ch.ID] = true

		channels = append(channels, ch)
		metrics.ParserRecordsTotal.Inc()
	}

	return channels, nil
}

func parseChannelRecord(record []string) (models.Channel, error) {
	if len(record) != 4 && len(record) != 5 {
		return models.Channel{}, errors.ErrInvalidFieldCount
	}

	ch := models.Channel{
		ID:   strings.TrimSpace(record[0]),
		Name: strings.TrimSpace(record[1]),
	}
	if ch.ID == "" {
		return models.Channel{}, errors.ErrEmptyID
	}
	if ch.Name == "" {
		ch.Name = ch.ID
	}

	var err error
	ch.DailyLeads, err = parseCount(record[2])
	if err != nil {
		return models.Channel{}, fmt.Errorf("%w: %v", errors.ErrInvalidDailyLeads, err)
	}

	ch.UnresolvedLeads, err = parseCount(record[3])
	if err != nil {
		return models.Channel{}, fmt.Errorf("%w: %v", errors.ErrInvalidUnresolvedLeads, err)
	}

	if len(record) == 5 {
		ch.Icon = strings.TrimSpace(record[4])
	}
	return ch, nil
}

func parseCount(field string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, errors.ErrInvalidFieldCount):
		return "field_count"
	case errors.Is(err, errors.ErrEmptyID):
		return "empty_id"
	case errors.Is(err, errors.ErrInvalidDailyLeads):
		return "daily_leads"
	case errors.Is(err, errors.ErrInvalidUnresolvedLeads):
		return "unresolved_leads"
	case errors.Is(err, errors.ErrDuplicateChannel):
		return "duplicate_channel"
	case errors.Is(err, errors.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, errors.ErrInvalidScenario):
		return "scenario"
	default:
		return "other"
	}
}

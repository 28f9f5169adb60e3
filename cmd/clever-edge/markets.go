package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/service"
)

// marketFile is the on-disk list of markets evaluated per cycle
type marketFile struct {
	Markets []marketEntry `json:"markets"`
}

type marketEntry struct {
	MarketID   string                    `json:"market_id"`
	Corpus     string                    `json:"corpus"`
	Category   string                    `json:"category"`
	EventID    string                    `json:"event_id"`
	EventDate  time.Time                 `json:"event_date"`
	Selections map[string]selectionEntry `json:"selections"`
}

type selectionEntry struct {
	Category  string   `json:"category"`
	Entities  []string `json:"entities"`
	Direction string   `json:"direction"`
}

// loadMarketRequests reads a market file; ids passed on the command line are appended
func loadMarketRequests(path string, ids []string, corpus string) ([]service.MarketRequest, error) {
	var requests []service.MarketRequest

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read markets file: %w", err)
		}
		parsed, err := parseMarketFile(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse markets file %s: %w", path, err)
		}
		requests = append(requests, parsed...)
	}

	for _, id := range ids {
		requests = append(requests, service.MarketRequest{MarketID: id, Corpus: corpus})
	}

	if len(requests) == 0 {
		return nil, fmt.Errorf("no markets given: use --markets-file or --market")
	}
	return requests, nil
}

func parseMarketFile(data []byte) ([]service.MarketRequest, error) {
	var file marketFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	requests := make([]service.MarketRequest, 0, len(file.Markets))
	for i, m := range file.Markets {
		if m.MarketID == "" {
			return nil, fmt.Errorf("market %d has no market_id", i)
		}
		req := service.MarketRequest{
			MarketID:  m.MarketID,
			Corpus:    m.Corpus,
			Category:  m.Category,
			EventID:   m.EventID,
			EventDate: m.EventDate,
		}
		if len(m.Selections) > 0 {
			req.Selections = make(map[string]service.SelectionContext, len(m.Selections))
			for id, sel := range m.Selections {
				req.Selections[id] = service.SelectionContext{
					Category:  sel.Category,
					Entities:  sel.Entities,
					Direction: models.Direction(sel.Direction),
				}
			}
		}
		requests = append(requests, req)
	}
	return requests, nil
}

package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"YieldStream/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadState reads the watch state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.WatchState, error) {
	state := &model.WatchState{Streams: make(map[uint64]*model.WatchEntry)}
	if filePath == "" {
		return state, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("read watch state: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse watch state %s: %w", filePath, err)
	}
	if state.Streams == nil {
		state.Streams = make(map[uint64]*model.WatchEntry)
	}
	return state, nil
}

// SaveState writes the watch state to a JSON file via a temp file and rename.
func SaveState(filePath string, state *model.WatchState) error {
	if filePath == "" {
		return nil
	}
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileBackend stores the completion set as a JSON array of topic-id
// strings in a single file — the same shape the original browser client
// kept under its localStorage key.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend at the given path. The file is
// created on first save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode progress file: %w", err)
	}
	return ids, nil
}

func (b *FileBackend) Save(_ context.Context, topicIDs []string) error {
	if topicIDs == nil {
		topicIDs = []string{}
	}
	data, err := json.Marshal(topicIDs)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("write progress file: %w", err)
	}
	return nil
}

// Package anim reads and writes converted sign motions.
package anim

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

var ErrNoPath = errors.New("motion has no path")

// Write stores the motion as JSON at motion.Path.
func Write(motion *model.Motion) error {
	if motion.Path == "" {
		return ErrNoPath
	}
	if err := os.MkdirAll(filepath.Dir(motion.Path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(motion.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", motion.Path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(motion); err != nil {
		return fmt.Errorf("failed to encode %s: %w", motion.Path, err)
	}
	return f.Close()
}

func Read(path string) (*model.Motion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	motion := new(model.Motion)
	if err := json.Unmarshal(data, motion); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	motion.Path = path
	motion.Sort()

	for i, kf := range motion.Keyframes {
		for joint := range kf.Bones {
			if !joint.Valid() {
				return nil, fmt.Errorf("%s keyframe %d: unknown joint %q", path, i, joint)
			}
		}
	}
	return motion, nil
}

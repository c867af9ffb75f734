package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
	"github.com/miu200521358/sign-pose-trace/pkg/utils"
)

const (
	LandmarkSuffix = "_landmarks"
	MotionSuffix   = "_motion.json"
)

// IsLandmarkFile reports whether name looks like landmark input rather than our own output.
func IsLandmarkFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, MotionSuffix)
}

// Unpack jsonデータを読み込んで、構造体に展開する
func Unpack(dirPath string, defaultFps float64) ([]*model.LandmarkFile, error) {
	mlog.I("Start: Unpack =============================")

	jsonPaths, err := utils.GetFilePaths(dirPath, IsLandmarkFile)
	if err != nil {
		mlog.E("Failed to get json file paths: %v", err)
		return nil, err
	}

	allFiles := make([]*model.LandmarkFile, len(jsonPaths))

	bar := utils.NewProgressBar(len(jsonPaths))

	for i, path := range jsonPaths {
		bar.Increment()
		mlog.D("[%d/%d] Unpack %s", i+1, len(jsonPaths), path)

		file, err := UnpackFile(path, defaultFps)
		if err != nil {
			bar.Finish()
			mlog.E("[%s] Failed to unpack: %v", path, err)
			return nil, err
		}
		allFiles[i] = file
	}

	bar.Finish()

	mlog.I("End: Unpack =============================")

	return allFiles, nil
}

// UnpackFile decodes one landmark file.
func UnpackFile(path string, defaultFps float64) (*model.LandmarkFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file := new(model.LandmarkFile)
	if err := json.NewDecoder(f).Decode(file); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	file.Path = path
	if file.Name == "" {
		file.Name = utils.BaseName(path, LandmarkSuffix)
	}
	file.ApplyDefaults(defaultFps)

	return file, nil
}

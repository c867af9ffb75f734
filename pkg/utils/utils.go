package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/miu200521358/sign-pose-trace/pkg/anim"
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

// GetFilePaths lists files directly under dirPath accepted by match, sorted.
func GetFilePaths(dirPath string, match func(name string) bool) ([]string, error) {
	var paths []string
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != dirPath && info.IsDir() {
			// 直下だけ参照
			return filepath.SkipDir
		}
		if !info.IsDir() && match(info.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// BaseName strips the directory, the extension and an optional suffix.
func BaseName(path, suffix string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.TrimSuffix(name, suffix)
}

func ReadMotionFiles(allPaths []string) ([]*model.Motion, error) {
	allMotions := make([]*model.Motion, len(allPaths))
	for i, path := range allPaths {
		mlog.I("Read Motion [%02d/%02d] %s", i+1, len(allPaths), filepath.Base(path))
		motion, err := anim.Read(path)
		if err != nil {
			mlog.E("Failed to read motion: %v", err)
			return nil, err
		}
		allMotions[i] = motion
	}

	return allMotions, nil
}

func NewProgressBar(total int) *pb.ProgressBar {
	// プログレスバーのカスタムテンプレートを設定
	template := `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.03f%%" "?"}} {{etime . "%s elapsed"}} {{rtime . "%s remain" "%s total" "???"}}`

	// プログレスバーの作成
	bar := pb.ProgressBarTemplate(template).Start(total)

	return bar
}

// WriteMotions writes every motion into dirPath, named after its source with
// fileSuffix, in parallel. The gltf flag adds a .glb next to each json.
func WriteMotions(motions []*model.Motion, dirPath, fileSuffix, logPrefix string, gltf bool) error {
	errCh := make(chan error, len(motions)*2)
	var wg sync.WaitGroup

	for i, motion := range motions {
		wg.Add(1)
		go func(i int, motion *model.Motion) {
			defer wg.Done()
			defer mlog.I("Output %s Motion [%d/%d] %s", logPrefix, i+1, len(motions), motion.Name)

			name := motion.Name
			if motion.Path != "" {
				name = BaseName(strings.TrimSuffix(motion.Path, "_motion.json"), "")
			}
			// 元のパスは次の段階の名前付けに使うので書き換えない
			out := *motion
			out.Path = filepath.Join(dirPath, fmt.Sprintf("%s_%s_motion.json", name, fileSuffix))

			if err := anim.Write(&out); err != nil {
				mlog.E("Failed to write %s motion: %v", logPrefix, err)
				errCh <- err
			}
			if gltf && out.Len() > 0 {
				gltfPath := strings.TrimSuffix(out.Path, ".json") + ".glb"
				if err := anim.WriteGltf(&out, gltfPath); err != nil {
					mlog.E("Failed to write %s gltf: %v", logPrefix, err)
					errCh <- err
				}
			}
		}(i, motion)
	}

	wg.Wait()
	close(errCh)

	if len(errCh) > 0 {
		return <-errCh
	}

	return nil
}

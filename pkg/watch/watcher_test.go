package watch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miu200521358/sign-pose-trace/pkg/anim"
	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

func writeLandmarkFile(t *testing.T, path string, frames int) {
	t.Helper()

	type frame struct {
		Index     int          `json:"index"`
		Time      float64      `json:"time"`
		Landmarks [][3]float64 `json:"landmarks"`
	}
	doc := struct {
		Name   string  `json:"name"`
		Fps    float64 `json:"fps"`
		Frames []frame `json:"frames"`
	}{Name: "thanks", Fps: 10}

	for i := 0; i < frames; i++ {
		points := make([][3]float64, 33)
		points[12] = [3]float64{0, 0, 0}
		points[14] = [3]float64{1, 0, 0}
		points[16] = [3]float64{2, float64(i) * 0.1, 0}
		doc.Frames = append(doc.Frames, frame{Index: i, Time: float64(i) / 10, Landmarks: points})
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestWatcherConvertsNewFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Motion.Gltf = true

	w, err := New(dir, cfg)
	require.NoError(t, err)
	w.Settle = 20 * time.Millisecond

	var mu sync.Mutex
	var converted []*model.Motion
	w.OnConvert = func(m *model.Motion) {
		mu.Lock()
		defer mu.Unlock()
		converted = append(converted, m)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// fsnotify の登録を待つ
	time.Sleep(100 * time.Millisecond)
	writeLandmarkFile(t, filepath.Join(dir, "thanks_landmarks.json"), 5)

	motionPath := filepath.Join(dir, "thanks_motion.json")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(converted) > 0
	}, 5*time.Second, 20*time.Millisecond)

	motion, err := anim.Read(motionPath)
	require.NoError(t, err)
	assert.Equal(t, "thanks", motion.Name)
	assert.NotZero(t, motion.Len())
	assert.FileExists(t, filepath.Join(dir, "thanks_motion.glb"))

	// 出力ファイルの書き込みで再変換されない
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	for _, m := range converted {
		assert.Equal(t, motionPath, m.Path)
	}
	mu.Unlock()
}

func TestWatcherIgnoresBrokenFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir, config.DefaultConfig())
	require.NoError(t, err)
	w.Settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))
	time.Sleep(200 * time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NoFileExists(t, filepath.Join(dir, "broken_motion.json"))
}

func TestRunFailsOnMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), config.DefaultConfig())
	require.NoError(t, err)
	assert.Error(t, w.Run(context.Background()))
}

func TestFiredTimerDoesNotBlockAfterStop(t *testing.T) {
	w, err := New(t.TempDir(), config.DefaultConfig())
	require.NoError(t, err)
	w.Settle = time.Millisecond

	// Run が戻った後: 誰も ready を読まない
	done := make(chan struct{})
	ready := make(chan string)
	w.schedule(done, "a.json", ready)
	w.schedule(done, "a.json", ready)
	w.schedule(done, "b.json", ready)
	close(done)

	finished := make(chan struct{})
	go func() {
		w.timers.Wait()
		close(finished)
	}()
	assert.Eventually(t, func() bool {
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.pending)
}

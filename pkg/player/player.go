// Package player plays a converted motion back with caller-driven time.
package player

import (
	"math"

	"github.com/petar/GoLLRB/llrb"

	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

type keyItem struct {
	kf *model.Keyframe
}

func (k keyItem) Less(than llrb.Item) bool {
	return k.kf.Time < than.(keyItem).kf.Time
}

func pivot(t float64) keyItem {
	return keyItem{kf: &model.Keyframe{Time: t}}
}

// Player samples one motion. It holds no clock: time only moves through Advance.
type Player struct {
	motion  *model.Motion
	tree    *llrb.LLRB
	end     float64
	elapsed float64
}

// NewPlayer snapshots the motion, later edits to it do not affect playback.
func NewPlayer(source *model.Motion) (*Player, error) {
	motion, err := source.Copy()
	if err != nil {
		return nil, err
	}

	tree := llrb.New()
	for _, kf := range motion.Keyframes {
		// 同時刻は後勝ち
		tree.ReplaceOrInsert(keyItem{kf: kf})
	}

	end := motion.Duration
	if tree.Len() > 0 {
		if last := tree.Max().(keyItem).kf.Time; end <= 0 || last > end {
			end = last
		}
	}

	return &Player{motion: motion, tree: tree, end: end}, nil
}

func (p *Player) Motion() *model.Motion {
	return p.motion
}

func (p *Player) Elapsed() float64 {
	return p.elapsed
}

// Duration is the playback length: the motion duration, or the last keyframe
// time when that is later or the duration is unset.
func (p *Player) Duration() float64 {
	return p.end
}

func (p *Player) Reset() {
	p.elapsed = 0
}

// Finished is true once a non-looping motion has reached its end.
func (p *Player) Finished() bool {
	if p.motion.Loop {
		return false
	}
	return p.elapsed >= p.end
}

// Advance moves the playhead by dt seconds and returns the pose there.
func (p *Player) Advance(dt float64) model.JointRotationMap {
	p.elapsed += dt
	if p.elapsed < 0 {
		p.elapsed = 0
	}
	if p.motion.Loop && p.end > 0 {
		p.elapsed = math.Mod(p.elapsed, p.end)
	} else if p.elapsed > p.end {
		p.elapsed = p.end
	}
	return p.Sample(p.elapsed)
}

// Sample returns the interpolated pose at t without moving the playhead.
func (p *Player) Sample(t float64) model.JointRotationMap {
	if p.tree.Len() == 0 {
		return nil
	}

	if p.motion.Loop && p.end > 0 {
		t = math.Mod(t, p.end)
		if t < 0 {
			t += p.end
		}
	}

	var prev, next *model.Keyframe
	p.tree.DescendLessOrEqual(pivot(t), func(i llrb.Item) bool {
		prev = i.(keyItem).kf
		return false
	})
	p.tree.AscendGreaterOrEqual(pivot(t), func(i llrb.Item) bool {
		next = i.(keyItem).kf
		return false
	})

	switch {
	case prev == nil:
		return next.Bones.Clone()
	case next == nil || prev == next:
		return prev.Bones.Clone()
	}

	ratio := (t - prev.Time) / (next.Time - prev.Time)
	return interpolate(prev.Bones, next.Bones, ratio)
}

func interpolate(from, to model.JointRotationMap, ratio float64) model.JointRotationMap {
	bones := make(model.JointRotationMap, len(from))
	for joint, r := range from {
		if n, ok := to[joint]; ok {
			bones[joint] = r.Lerp(n, ratio)
		} else {
			bones[joint] = r
		}
	}
	for joint, n := range to {
		if _, ok := from[joint]; !ok {
			bones[joint] = n
		}
	}
	return bones
}

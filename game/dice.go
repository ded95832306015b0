package game

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// D20Sides is the die used for ability checks.
const D20Sides = 20

// revealSteps is the number of intermediate values shown before an animated
// reveal settles on the true result.
const revealSteps = 8

// Roll returns a uniform random integer in [1, sides] via crypto/rand.
func Roll(sides int) int {
	if sides <= 0 {
		return 0
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(sides)))
	return int(n.Int64()) + 1
}

// RevealStep is one frame of an animated dice reveal: the value to show and
// how long to wait before showing it.
type RevealStep struct {
	Value int
	Delay time.Duration
}

// RevealSequence builds the display sequence for a roll whose authoritative
// result was produced by the caller. With animate false the result is shown
// immediately. With animate true, eight intermediate uniform d20 values are
// shown with a growing delay between steps, and the final step is the true
// result.
func RevealSequence(result int, animate bool) []RevealStep {
	if !animate {
		return []RevealStep{{Value: result}}
	}

	steps := make([]RevealStep, 0, revealSteps+1)
	for i := 0; i < revealSteps; i++ {
		steps = append(steps, RevealStep{
			Value: Roll(D20Sides),
			Delay: time.Duration(40+15*i) * time.Millisecond,
		})
	}
	steps = append(steps, RevealStep{
		Value: result,
		Delay: time.Duration(40+15*revealSteps) * time.Millisecond,
	})

	return steps
}

// PlayReveal runs a reveal sequence against a display callback, honoring each
// step's delay. It stops early if the context is cancelled.
func PlayReveal(ctx context.Context, result int, animate bool, show func(int)) error {
	for _, step := range RevealSequence(result, animate) {
		if step.Delay > 0 {
			select {
			case <-time.After(step.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		show(step.Value)
	}
	return nil
}

package scene

import "github.com/fogleman/ease"

// Strategy is a transition routine: a suspension-capable procedure that
// hands off visually from the previous scene to the entering one. It
// runs on the entering scene's thread and yields once per frame.
type Strategy func(c *Context, previous *Scene) error

// Transition runs the scene's entry transition. With a strategy it
// delegates to it and awaits its completion; without one it immediately
// hides the previous scene. Either way, completion performs the
// Initial -> AfterTransitionIn edge.
//
// Routines call this first:
//
//	func run(c *scene.Context) error {
//		if err := c.Transition(scene.FadeIn(15)); err != nil {
//			return err
//		}
//		...
//	}
func (c *Context) Transition(strategy Strategy) error {
	s := c.Scene
	if strategy != nil {
		if err := strategy(c, s.previous); err != nil {
			return err
		}
	} else if s.previous != nil {
		s.previous.Hide()
	}
	s.completeTransitionIn()
	return nil
}

// FadeIn returns a Strategy that cross-fades over the given number of
// frames: the entering scene's opacity ramps up while the previous
// scene's ramps down, eased for a soft start and finish.
func FadeIn(frames int) Strategy {
	if frames < 1 {
		frames = 1
	}
	return func(c *Context, previous *Scene) error {
		s := c.Scene
		for i := 1; i <= frames; i++ {
			v := ease.InOutQuad(float64(i) / float64(frames))
			s.SetOpacity(v)
			if previous != nil {
				previous.SetOpacity(1 - v)
			}
			if i < frames {
				if err := c.Thread.Yield(); err != nil {
					return err
				}
			}
		}
		s.SetOpacity(1)
		return nil
	}
}

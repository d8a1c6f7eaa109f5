package overlay

import "github.com/teslashibe/go-emotify/pkg/emotions"

// Speech balloon layout. Mood slots are in balloon pixels before the
// balloon is scaled onto the frame.
const (
	BalloonX     = 10.0
	BalloonY     = 10.0
	BalloonScale = 2.0

	MoodLeft = 45.0
	MoodTop  = 70.0
	MoodStep = 70.0
	MoodSize = 70.0
)

// BadgeCommands lays out the speech balloon with one slot per mood. An
// empty mood list draws nothing.
func (m *Matcher) BadgeCommands(moods []emotions.Emotion) []DrawCommand {
	if len(moods) == 0 {
		return nil
	}
	balloon, err := m.Icons.Get(emotions.BalloonIcon)
	if err != nil {
		m.logger.Warn("no balloon icon", "error", err)
		return nil
	}

	cmds := make([]DrawCommand, 0, len(moods)+1)
	cmds = append(cmds, DrawCommand{
		Icon: balloon.Name,
		Dst: Rect{
			X: BalloonX,
			Y: BalloonY,
			W: float64(balloon.Width) * BalloonScale,
			H: float64(balloon.Height) * BalloonScale,
		},
		Src: Rect{W: float64(balloon.Width), H: float64(balloon.Height)},
	})

	for i, mood := range moods {
		icon, err := m.Icons.For(mood)
		if err != nil {
			m.logger.Warn("no icon for mood", "emotion", mood, "error", err)
			continue
		}
		cmds = append(cmds, DrawCommand{
			Icon: icon.Name,
			Dst: Rect{
				X: BalloonX + (MoodLeft+MoodStep*float64(i))*BalloonScale,
				Y: BalloonY + MoodTop*BalloonScale,
				W: MoodSize * BalloonScale,
				H: MoodSize * BalloonScale,
			},
			Src: Rect{W: float64(icon.Width), H: float64(icon.Height)},
		})
	}
	return cmds
}

package player

import "github.com/narayaneeyam/dashakam/internal/content"

// FindCue returns the index of the first cue with start <= t < end, or -1.
func FindCue(cues []content.Cue, t float64) int {
	for i, c := range cues {
		if t >= c.Start && t < c.End {
			return i
		}
	}
	return -1
}

// recomputeLocked brings the active cue in line with the audio position.
// An explicit recompute follows a user seek: it skips the segment repeat
// check and re-chooses the repeat segment from the new position.
func (c *Controller) recomputeLocked(explicit bool) {
	t := c.audio.CurrentTime()

	if !explicit && c.state.RepeatSegment && c.segment >= 0 && c.segment < len(c.cues) {
		seg := c.cues[c.segment]
		if t >= seg.End {
			if err := c.audio.Seek(seg.Start); err != nil {
				c.logger.Error("error repeating verse", "cue", seg.ID, "error", err)
			} else {
				t = seg.Start
			}
		}
	}

	c.setActiveLocked(FindCue(c.cues, t))
	if explicit {
		c.segment = c.active
	}
	c.state.CurrentTime = t
}

func (c *Controller) setActiveLocked(index int) {
	if index == c.active {
		return
	}

	if c.active >= 0 {
		c.view.SetActive(c.active, false)
	}
	c.active = index
	if index >= 0 {
		c.view.SetActive(index, true)
		c.segment = index
		c.logger.Debug("active verse", "cue", c.cues[index].ID, "start", c.cues[index].Start)
	}
}

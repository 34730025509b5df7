// Package player keeps the playback state of one chapter and synchronizes
// the highlighted verse with the audio position.
//
// The Controller is driven from a single goroutine: each tick calls
// TimeUpdate, and user actions call the matching control method. Chapter
// loads are split in three steps so the fetch can run elsewhere:
//
//	req := c.SelectChapter(n)      // swaps the audio source
//	res := c.Fetch(ctx, req)       // fetches and parses, no controller state
//	c.Apply(res)                   // discarded if another chapter was selected
package player

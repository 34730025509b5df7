// Package audio plays a chapter's MP3 track through oto/v3. It mirrors the
// small slice of a media element the player needs: a swappable source,
// play/pause, seeking, a current time, speed, volume and an ended flag.
package audio

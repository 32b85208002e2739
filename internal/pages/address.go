// Package pages maps (depth, channel, frame) coordinates onto the flat page
// sequence of a recording and reads cropped pages from the files holding them.
//
// Pages are interleaved channel fastest, then depth, then frame. The
// interleaving is fixed by the acquisition, so page lists are always emitted
// in that order no matter how the caller ordered its requests.
package pages

// Layout describes how pages are interleaved.
type Layout struct {
	NumChannels int
	NumDepths   int
}

// PagesPerFrame returns the number of pages recorded per frame (volume).
func (l Layout) PagesPerFrame() int {
	return l.NumChannels * l.NumDepths
}

// PageNumber returns the 1-based page holding the 1-based (depth, channel,
// frame) coordinate.
func (l Layout) PageNumber(depth, channel, frame int) int {
	return (frame-1)*l.PagesPerFrame() + (depth-1)*l.NumChannels + channel
}

// Pages returns the 0-based pages for every combination of the 0-based
// depths, channels and frames, frame outermost and channel innermost.
// Repeated and unordered entries are kept as given.
func (l Layout) Pages(depths, channels, frames []int) []int {
	out := make([]int, 0, len(depths)*len(channels)*len(frames))
	for _, frame := range frames {
		for _, depth := range depths {
			for _, channel := range channels {
				out = append(out, frame*l.PagesPerFrame()+depth*l.NumChannels+channel)
			}
		}
	}
	return out
}

package valueobjects

import "sort"

// TimelineChapter is one externally curated chapter scaffold: a titled span
// the clusterer anchors atoms to when available
type TimelineChapter struct {
	ID    string
	Title string
	Span  TimeSpan
}

// TimelineArc groups chapters inside a saga
type TimelineArc struct {
	ID       string
	Title    string
	Chapters []TimelineChapter
}

// TimelineSaga is the top level of the externally supplied hierarchy
type TimelineSaga struct {
	ID    string
	Title string
	Arcs  []TimelineArc
}

// TimelineHierarchy is the saga→arc→chapter structure supplied by the
// timeline store. Its absence is a valid state; the pipeline then falls
// back to pure clustering.
type TimelineHierarchy struct {
	Sagas []TimelineSaga
}

// FlattenChapters collapses the hierarchy into chapter scaffolds ordered by
// start time
func (h *TimelineHierarchy) FlattenChapters() []TimelineChapter {
	if h == nil {
		return nil
	}
	var chapters []TimelineChapter
	for _, saga := range h.Sagas {
		for _, arc := range saga.Arcs {
			chapters = append(chapters, arc.Chapters...)
		}
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Span.Start().Before(chapters[j].Span.Start())
	})
	return chapters
}

// IsEmpty reports whether the hierarchy carries no chapters
func (h *TimelineHierarchy) IsEmpty() bool {
	if h == nil {
		return true
	}
	for _, saga := range h.Sagas {
		for _, arc := range saga.Arcs {
			if len(arc.Chapters) > 0 {
				return false
			}
		}
	}
	return true
}

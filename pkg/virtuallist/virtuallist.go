// Package virtuallist computes the layout of a virtualized, variable-height
// message list: which item range is visible, where the scroll offset must
// move to keep content anchored across prepends, appends and remeasures, and
// when boundary load callbacks fire. It is pure math; rendering and input
// belong to the embedding view.
package virtuallist

import "sync"

const (
	// DefaultOverscan is how many extra items render beyond each viewport edge.
	DefaultOverscan = 5
	// DefaultLoadThreshold is the distance in pixels from a list boundary at
	// which the corresponding load callback fires.
	DefaultLoadThreshold = 500
	// bottomSlack is how close to the end still counts as "at the bottom"
	// for append auto-scrolling.
	bottomSlack = 30
)

// Config configures a List. Zero values fall back to the defaults above.
type Config struct {
	// EstimatedItemHeight is used for items that have not been measured yet.
	EstimatedItemHeight float64
	Overscan            int
	LoadThreshold       float64
	// OnLoadOlder fires while the scroll offset is within LoadThreshold of
	// the top; OnLoadNewer while within it of the bottom. Both may fire
	// repeatedly; guarding against duplicate fetches is the caller's job.
	OnLoadOlder func()
	OnLoadNewer func()
}

// List tracks item heights and the scroll state of one virtualized list.
// Indices address items top (oldest) to bottom (newest).
type List struct {
	mu sync.Mutex

	cfg     Config
	total   int
	heights map[int]float64

	viewport   float64
	scrollTop  float64
	atBottom   bool
	mounted    bool
	jumpTarget int // -1 when no jump anchor is pending
}

// New creates an empty list.
func New(cfg Config) *List {
	if cfg.EstimatedItemHeight <= 0 {
		cfg.EstimatedItemHeight = 40
	}
	if cfg.Overscan <= 0 {
		cfg.Overscan = DefaultOverscan
	}
	if cfg.LoadThreshold <= 0 {
		cfg.LoadThreshold = DefaultLoadThreshold
	}
	return &List{
		cfg:        cfg,
		heights:    make(map[int]float64),
		atBottom:   true,
		jumpTarget: -1,
	}
}

func (l *List) heightOf(i int) float64 {
	if h, ok := l.heights[i]; ok {
		return h
	}
	return l.cfg.EstimatedItemHeight
}

func (l *List) offsetOf(index int) float64 {
	offset := 0.0
	for i := 0; i < index; i++ {
		offset += l.heightOf(i)
	}
	return offset
}

func (l *List) totalHeight() float64 {
	total := 0.0
	for i := 0; i < l.total; i++ {
		total += l.heightOf(i)
	}
	return total
}

func (l *List) maxScroll() float64 {
	max := l.totalHeight() - l.viewport
	if max < 0 {
		return 0
	}
	return max
}

func (l *List) clampScroll(y float64) float64 {
	if y < 0 {
		return 0
	}
	if max := l.maxScroll(); y > max {
		return max
	}
	return y
}

// centerOnLocked moves the scroll offset so the item is centered in the
// viewport.
func (l *List) centerOnLocked(index int) {
	target := l.offsetOf(index) + l.heightOf(index)/2 - l.viewport/2
	l.scrollTop = l.clampScroll(target)
	l.updateAtBottomLocked()
}

func (l *List) updateAtBottomLocked() {
	l.atBottom = l.scrollTop+l.viewport >= l.totalHeight()-bottomSlack
}

// SetViewportHeight records the viewport size. On first mount the list
// scrolls to the bottom, unless a jump target was requested, in which case
// that target is centered instead.
func (l *List) SetViewportHeight(h float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.viewport = h
	if !l.mounted {
		l.mounted = true
		if l.jumpTarget >= 0 {
			l.centerOnLocked(l.jumpTarget)
			return
		}
		l.scrollTop = l.maxScroll()
		l.atBottom = true
		return
	}
	l.updateAtBottomLocked()
}

// Reset replaces the content with total items, dropping all measurements.
func (l *List) Reset(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
	l.heights = make(map[int]float64)
	l.jumpTarget = -1
	l.scrollTop = l.maxScroll()
	l.atBottom = true
}

// Prepend inserts n items at the top. Measured heights shift with their
// items, and the scroll offset advances by the summed height of the new
// leading items so the anchored content does not jump.
func (l *List) Prepend(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	shifted := make(map[int]float64, len(l.heights))
	for i, h := range l.heights {
		shifted[i+n] = h
	}
	l.heights = shifted
	l.total += n
	if l.jumpTarget >= 0 {
		l.jumpTarget += n
	}

	added := 0.0
	for i := 0; i < n; i++ {
		added += l.heightOf(i)
	}
	l.scrollTop = l.clampScroll(l.scrollTop + added)
	l.updateAtBottomLocked()
}

// Append adds n items at the bottom. If the viewport was at the bottom
// beforehand (within the slack) the list auto-scrolls to the new bottom.
func (l *List) Append(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	wasAtBottom := l.atBottom
	l.total += n
	if wasAtBottom {
		l.scrollTop = l.maxScroll()
		l.atBottom = true
		return
	}
	l.updateAtBottomLocked()
}

// Measure records the rendered height of an item. While a jump anchor is
// pending, any measurement re-centers on the target; measuring the target
// itself releases the anchor.
func (l *List) Measure(index int, height float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= l.total || height <= 0 {
		return
	}
	if prev, ok := l.heights[index]; ok && prev == height {
		return
	}
	l.heights[index] = height

	if l.jumpTarget >= 0 {
		target := l.jumpTarget
		l.centerOnLocked(target)
		if index == target {
			l.jumpTarget = -1
		}
		return
	}
	if l.atBottom {
		// Keep the bottom pinned while late measurements trickle in.
		l.scrollTop = l.maxScroll()
		return
	}
	l.updateAtBottomLocked()
}

// JumpTo anchors the view on the given index, centering it until the item
// has been measured.
func (l *List) JumpTo(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= l.total {
		return
	}
	l.jumpTarget = index
	if l.mounted {
		l.centerOnLocked(index)
	}
}

// ScrollToBottom pins the view to the end of the content.
func (l *List) ScrollToBottom() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jumpTarget = -1
	l.scrollTop = l.maxScroll()
	l.atBottom = true
}

// SetScrollTop applies a user scroll, updates bottom-stickiness, and fires
// the boundary callbacks while their conditions hold.
func (l *List) SetScrollTop(y float64) {
	l.mu.Lock()
	l.scrollTop = l.clampScroll(y)
	l.updateAtBottomLocked()
	nearTop := l.scrollTop < l.cfg.LoadThreshold
	nearBottom := l.totalHeight()-(l.scrollTop+l.viewport) < l.cfg.LoadThreshold
	onOlder := l.cfg.OnLoadOlder
	onNewer := l.cfg.OnLoadNewer
	l.mu.Unlock()

	if nearTop && onOlder != nil {
		onOlder()
	}
	if nearBottom && onNewer != nil {
		onNewer()
	}
}

// ScrollTop returns the current scroll offset.
func (l *List) ScrollTop() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scrollTop
}

// TotalHeight returns the summed (measured or estimated) content height.
func (l *List) TotalHeight() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalHeight()
}

// OffsetOf returns the top offset of an item.
func (l *List) OffsetOf(index int) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offsetOf(index)
}

// AtBottom reports whether the viewport is within the slack of the end.
func (l *List) AtBottom() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.atBottom
}

// VisibleRange returns the inclusive item range to render: a forward scan
// accumulates heights until the scroll offset is passed for the start, and
// until the viewport bottom is passed for the end, widened by the overscan
// margin on both sides.
func (l *List) VisibleRange() (start, end int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.total == 0 {
		return 0, -1
	}

	start = l.total - 1
	offset := 0.0
	for i := 0; i < l.total; i++ {
		h := l.heightOf(i)
		if offset+h > l.scrollTop {
			start = i
			break
		}
		offset += h
	}
	start -= l.cfg.Overscan
	if start < 0 {
		start = 0
	}

	bottom := l.scrollTop + l.viewport
	offset = l.offsetOf(start)
	end = start
	for i := start; i < l.total; i++ {
		if offset > bottom {
			break
		}
		offset += l.heightOf(i)
		end = i
	}
	end += l.cfg.Overscan
	if end > l.total-1 {
		end = l.total - 1
	}
	return start, end
}

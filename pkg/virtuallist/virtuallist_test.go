package virtuallist

import "testing"

// newList builds a mounted list of total items with the default 40px estimate
// and a 400px viewport.
func newList(t *testing.T, total int) *List {
	t.Helper()
	l := New(Config{})
	l.Reset(total)
	l.SetViewportHeight(400)
	return l
}

func wantScroll(t *testing.T, l *List, want float64) {
	t.Helper()
	if got := l.ScrollTop(); got != want {
		t.Fatalf("scrollTop = %v, want %v", got, want)
	}
}

func TestMountScrollsToBottom(t *testing.T) {
	l := newList(t, 100)
	// 100 items * 40px estimate - 400px viewport.
	wantScroll(t, l, 3600)
	if !l.AtBottom() {
		t.Errorf("not at bottom after mount")
	}
}

func TestVisibleRange(t *testing.T) {
	l := newList(t, 100)
	start, end := l.VisibleRange()
	// Items 90..99 fill the viewport, widened by the 5-item overscan.
	if start != 85 || end != 99 {
		t.Errorf("range = [%d,%d], want [85,99]", start, end)
	}

	l.SetScrollTop(0)
	start, end = l.VisibleRange()
	if start != 0 || end != 15 {
		t.Errorf("range at top = [%d,%d], want [0,15]", start, end)
	}
}

func TestVisibleRangeEmpty(t *testing.T) {
	l := New(Config{})
	if start, end := l.VisibleRange(); start != 0 || end != -1 {
		t.Errorf("empty range = [%d,%d], want [0,-1]", start, end)
	}
}

func TestPrependAnchorsScroll(t *testing.T) {
	l := newList(t, 100)
	l.SetScrollTop(1000)
	l.Prepend(10)
	// 10 new 40px items above: the offset moves by exactly their height.
	wantScroll(t, l, 1400)
	if l.TotalHeight() != 4400 {
		t.Errorf("totalHeight = %v, want 4400", l.TotalHeight())
	}
}

func TestPrependShiftsMeasurements(t *testing.T) {
	l := newList(t, 20)
	l.Measure(0, 100)
	l.Prepend(5)

	// The measured item moved from index 0 to index 5.
	if got := l.OffsetOf(1); got != 40 {
		t.Errorf("offsetOf(1) = %v, want 40 (new items use the estimate)", got)
	}
	if got := l.OffsetOf(6); got != 300 {
		t.Errorf("offsetOf(6) = %v, want 300 (5*40 + measured 100)", got)
	}
}

func TestAppendSticksToBottom(t *testing.T) {
	l := newList(t, 10)
	wantScroll(t, l, 0)
	l.Append(5)
	// Content grew past the viewport; the view follows the new bottom.
	wantScroll(t, l, 200)
	if !l.AtBottom() {
		t.Errorf("lost bottom stickiness")
	}
}

func TestAppendKeepsReadingPosition(t *testing.T) {
	l := newList(t, 100)
	l.SetScrollTop(1000)
	l.Append(5)
	wantScroll(t, l, 1000)
	if l.AtBottom() {
		t.Errorf("scrolled-up view marked at bottom")
	}
}

func TestJumpCentersUntilTargetMeasured(t *testing.T) {
	l := New(Config{})
	l.Reset(100)
	l.JumpTo(50)
	l.SetViewportHeight(400)
	// offsetOf(50)=2000, + 40/2 - 400/2.
	wantScroll(t, l, 1820)

	// Measuring another item re-centers with the updated offsets.
	l.Measure(10, 140)
	wantScroll(t, l, 1920)

	// Measuring the target releases the anchor.
	l.Measure(50, 80)
	wantScroll(t, l, 1940)

	// Further measurements no longer move the view.
	l.Measure(20, 100)
	wantScroll(t, l, 1940)
}

func TestScrollToBottomReleasesJump(t *testing.T) {
	l := newList(t, 100)
	l.JumpTo(10)
	l.ScrollToBottom()
	wantScroll(t, l, 3600)
	l.Measure(10, 200)
	// Bottom stays pinned; the old jump anchor must not re-center.
	wantScroll(t, l, 3760)
	if !l.AtBottom() {
		t.Errorf("bottom pin lost")
	}
}

func TestBoundaryCallbacksRepeat(t *testing.T) {
	older, newer := 0, 0
	l := New(Config{OnLoadOlder: func() { older++ }, OnLoadNewer: func() { newer++ }})
	l.Reset(100)
	l.SetViewportHeight(400)

	l.SetScrollTop(100)
	l.SetScrollTop(200)
	if older != 2 {
		t.Errorf("older fired %d times, want 2 (repeat while near the top)", older)
	}
	if newer != 0 {
		t.Errorf("newer fired %d times near the top", newer)
	}

	l.SetScrollTop(2000)
	if older != 2 || newer != 0 {
		t.Errorf("mid-list scroll fired callbacks: older=%d newer=%d", older, newer)
	}

	l.SetScrollTop(3600)
	if newer != 1 {
		t.Errorf("newer fired %d times at the bottom, want 1", newer)
	}
}

func TestResetDropsMeasurements(t *testing.T) {
	l := newList(t, 100)
	l.Measure(0, 200)
	l.SetScrollTop(1000)
	l.Reset(3)
	if got := l.TotalHeight(); got != 120 {
		t.Errorf("totalHeight = %v, want 120", got)
	}
	wantScroll(t, l, 0)
	if !l.AtBottom() {
		t.Errorf("reset must land at the bottom")
	}
}

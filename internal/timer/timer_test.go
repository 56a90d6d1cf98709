package timer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct{ now uint64 }

func (f *fakeSource) Now() uint64 { return f.now }

type fakeArmer struct{ armedAt uint64 }

func (f *fakeArmer) Arm(deadline uint64) { f.armedAt = deadline }

func TestSetNextTriggerArmsOneIntervalOut(t *testing.T) {
	src := &fakeSource{now: 1000}
	armer := &fakeArmer{}
	w := New(src, armer, 100)

	w.SetNextTrigger()
	require.Equal(t, uint64(1100), armer.armedAt)
}

func TestCheckTimerRunsOnlyDueCallbacks(t *testing.T) {
	src := &fakeSource{now: 0}
	w := New(src, &fakeArmer{}, 100)

	var fired []string
	w.Schedule(10, func() { fired = append(fired, "soon") })
	w.Schedule(1000, func() { fired = append(fired, "later") })

	src.now = 10
	w.CheckTimer()
	require.Equal(t, []string{"soon"}, fired)
	require.Equal(t, 1, w.Pending())

	src.now = 1000
	w.CheckTimer()
	require.Equal(t, []string{"soon", "later"}, fired)
	require.Equal(t, 0, w.Pending())
}

func TestCheckTimerWithNothingDueIsNoop(t *testing.T) {
	src := &fakeSource{now: 0}
	w := New(src, &fakeArmer{}, 100)
	w.Schedule(50, func() { t.Fatal("callback must not fire early") })
	w.CheckTimer()
	require.Equal(t, 1, w.Pending())
}

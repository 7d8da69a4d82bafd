package store

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

type rawDoc struct {
	id   string
	body string
}

func (d rawDoc) ID() string { return d.id }

func (d rawDoc) DataTo(dest interface{}) error { return json.Unmarshal([]byte(d.body), dest) }

func TestCollectionSubscribeDeliversCurrentAndLater(t *testing.T) {
	c := NewCollection[int]("numbers")
	c.Publish([]int{1})

	var got []Snapshot[int]
	unsub := c.Subscribe(func(s Snapshot[int]) { got = append(got, s) })
	c.Publish([]int{1, 2})
	unsub()
	unsub()
	c.Publish([]int{1, 2, 3})

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Version)
	assert.Equal(t, []int{1, 2}, got[1].Items)
	assert.Equal(t, uint64(3), c.Version())
}

func TestSubscriberNeverSeesOlderVersion(t *testing.T) {
	c := NewCollection[int]("numbers")
	s := &subscriber[int]{}
	var seen []uint64
	s.fn = func(snap Snapshot[int]) { seen = append(seen, snap.Version) }

	s.deliver(Snapshot[int]{Version: 2})
	s.deliver(Snapshot[int]{Version: 1})
	s.deliver(Snapshot[int]{Version: 2})
	s.deliver(Snapshot[int]{Version: 3})

	assert.Equal(t, []uint64{2, 3}, seen)
	assert.Equal(t, "numbers", c.Name())
}

func TestConcurrentPublishIsMonotonicPerSubscriber(t *testing.T) {
	c := NewCollection[int]("numbers")
	var mu sync.Mutex
	var last uint64
	ordered := true
	unsub := c.Subscribe(func(s Snapshot[int]) {
		mu.Lock()
		defer mu.Unlock()
		if s.Version < last {
			ordered = false
		}
		last = s.Version
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Publish([]int{i})
		}(i)
	}
	wg.Wait()

	assert.True(t, ordered)
}

func TestOnChangeSkipsInitialSnapshot(t *testing.T) {
	c := NewCollection[int]("numbers")
	var calls int
	unsub := c.OnChange(func() { calls++ })
	assert.Zero(t, calls)
	c.Publish(nil)
	unsub()
	c.Publish(nil)
	assert.Equal(t, 1, calls)
}

func TestFeedUnionsPartsFirstWins(t *testing.T) {
	grades := NewCollection[models.Grade](models.CollectionGrades)
	feed := NewFeed[models.Grade](grades)

	gen := feed.Reset(2)
	require.NoError(t, feed.Apply(gen, 0, []Document{
		rawDoc{"g1", `{"studentId":"s1","score":12,"maxScore":20}`},
	}))
	assert.Zero(t, grades.Version(), "waits for every part")

	require.NoError(t, feed.Apply(gen, 1, []Document{
		rawDoc{"g1", `{"studentId":"other","score":1,"maxScore":20}`},
		rawDoc{"g2", `{"studentId":"s2","score":15,"maxScore":20}`},
	}))

	snap := grades.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "g1", snap.Items[0].ID)
	assert.Equal(t, "s1", snap.Items[0].StudentID)
	assert.Equal(t, "g2", snap.Items[1].ID)
}

func TestFeedDropsStaleGeneration(t *testing.T) {
	comments := NewCollection[models.TeacherComment](models.CollectionComments)
	feed := NewFeed[models.TeacherComment](comments)

	old := feed.Reset(1)
	current := feed.Reset(1)
	require.NoError(t, feed.Apply(old, 0, []Document{rawDoc{"c-old", `{}`}}))
	assert.Zero(t, comments.Version())

	require.NoError(t, feed.Apply(current, 0, []Document{rawDoc{"c-new", `{"isValidated":true}`}}))
	snap := comments.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "c-new", snap.Items[0].ID)
	assert.True(t, snap.Items[0].IsValidated)
}

func TestFeedDecodeError(t *testing.T) {
	feed := NewFeed[models.Grade](NewCollection[models.Grade](models.CollectionGrades))
	gen := feed.Reset(1)
	err := feed.Apply(gen, 0, []Document{rawDoc{"bad", `{"score":"twelve"}`}})
	assert.ErrorContains(t, err, "grades")
}

func TestFeedResetToZeroPartsEmptiesCollection(t *testing.T) {
	events := NewCollection[models.Event](models.CollectionEvents)
	events.Publish([]models.Event{{ID: "e1"}})
	NewFeed[models.Event](events).Reset(0)
	assert.Empty(t, events.Snapshot().Items)
}

func TestMemo(t *testing.T) {
	m := NewMemo[string, int](2)
	calls := 0
	compute := func() int { calls++; return calls }

	v, hit := m.Get("a", compute)
	assert.Equal(t, 1, v)
	assert.False(t, hit)
	v, hit = m.Get("a", compute)
	assert.Equal(t, 1, v)
	assert.True(t, hit)

	m.Get("b", compute)
	m.Get("c", compute)
	assert.Equal(t, 1, m.Len(), "cleared when full")
}

func TestWatchCoalescesAndStops(t *testing.T) {
	grades := NewCollection[int]("grades")
	periods := NewCollection[int]("periods")

	var runs int32
	var running int32
	var overlapped atomic.Bool
	release := make(chan struct{})
	entered := make(chan struct{}, 10)

	stop := Watch(func() {
		if atomic.AddInt32(&running, 1) > 1 {
			overlapped.Store(true)
		}
		n := atomic.AddInt32(&runs, 1)
		if n == 2 {
			entered <- struct{}{}
			<-release
		}
		atomic.AddInt32(&running, -1)
	}, grades, periods)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	done := make(chan struct{})
	go func() {
		grades.Publish([]int{1})
		close(done)
	}()
	<-entered

	// Changes while the second run is blocked collapse into one run.
	periods.Publish([]int{1})
	periods.Publish([]int{2})
	periods.Publish([]int{3})
	close(release)
	<-done

	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
	assert.False(t, overlapped.Load())

	stop()
	stop()
	grades.Publish([]int{3})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
}

func TestReadModel(t *testing.T) {
	m := NewReadModel()
	assert.NotEmpty(t, m.ID())
	assert.Len(t, m.Collections(), len(m.Sources()))

	before := m.Versions()
	m.Academics.Periods.Publish([]models.AcademicPeriod{{ID: "p1"}})
	m.SetCoveredPeriodIDs([]string{"p1"})
	after := m.Versions()
	assert.NotEqual(t, before, after)

	v := m.View()
	assert.Equal(t, after, v.Versions)
	assert.True(t, v.Covers("p1"))
	assert.False(t, v.Covers("p2"))

	for _, name := range m.Collections() {
		b, ok := m.Feed(name)
		require.True(t, ok, name)
		assert.Equal(t, name, b.Name())
	}
}

func TestViewLookups(t *testing.T) {
	v := View{
		Users: []models.User{
			{ID: "s1", Role: models.RoleStudent, ClassID: "c1"},
			{ID: "s2", Role: models.RoleStudent, ClassID: "c2"},
			{ID: "t1", Role: models.RoleTeacher},
		},
		Comments: []models.TeacherComment{
			{ID: "k1", StudentID: "s1", CourseID: "m", PeriodID: "p1"},
			{ID: "k2", StudentID: "s1", CourseID: "m", PeriodID: "p1"},
		},
	}
	assert.Len(t, v.Students(), 2)
	assert.Len(t, v.Teachers(), 1)
	assert.Len(t, v.ClassStudents("c1"), 1)
	_, ok := v.Student("t1")
	assert.False(t, ok)

	c, ok := v.Comment("s1", "m", "p1")
	require.True(t, ok)
	assert.Equal(t, "k1", c.ID)
}

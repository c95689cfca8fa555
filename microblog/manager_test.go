package microblog_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"micro-timeline/microblog"
	"micro-timeline/microblog/inmemoryimpl"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var ctx = context.Background()

func TestTimelineManager(t *testing.T) {
	suite.Run(t, new(TimelineManagerSuite))
}

type TimelineManagerSuite struct {
	suite.Suite

	store    *inmemoryimpl.InMemoryStore
	timeline *inmemoryimpl.InMemoryTimeline
	logs     *observer.ObservedLogs
	manager  *microblog.TimelineManager
}

func (s *TimelineManagerSuite) SetupTest() {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	s.logs = logs
	s.store = inmemoryimpl.NewInMemoryStore()
	s.timeline = inmemoryimpl.NewInMemoryTimeline(microblog.DefaultTimelineCapacity, logger)
	s.manager = microblog.NewTimelineManager(s.store, s.timeline, microblog.WithLogger(logger))
}

func (s *TimelineManagerSuite) addNPosts(n int) []microblog.Post {
	posts := make([]microblog.Post, 0, n)
	for i := 1; i <= n; i++ {
		p, err := s.manager.CreatePost(ctx, "", "post "+strconv.Itoa(i))
		s.Require().NoError(err)
		posts = append(posts, p)
	}
	return posts
}

func ids(posts []microblog.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.PostId)
	}
	return out
}

func (s *TimelineManagerSuite) TestCreatePost_PersistsAndRecords() {
	p, err := s.manager.CreatePost(ctx, "", "Hello, World!")
	s.Require().NoError(err)
	s.Require().Equal(microblog.DefaultAuthor, p.AuthorName)
	s.Require().Equal("Hello, World!", p.Body)
	s.Require().Equal(1, s.store.Count())
	s.Require().Equal([]string{p.PostId}, s.timeline.FetchRecent(ctx, 10))
}

func (s *TimelineManagerSuite) TestCreatePost_ValidationFailureTouchesNothing() {
	_, err := s.manager.CreatePost(ctx, "guest", "")
	s.Require().ErrorIs(err, microblog.ErrValidation)
	s.Require().Zero(s.store.Count())
	s.Require().Empty(s.timeline.FetchRecent(ctx, 10))
}

func (s *TimelineManagerSuite) TestCreatePost_StoreFailureTouchesNothing() {
	s.store.SetFailure(errors.New("db down"))
	_, err := s.manager.CreatePost(ctx, "guest", "hello")
	s.Require().ErrorIs(err, microblog.ErrStorage)

	s.store.SetFailure(nil)
	s.Require().Zero(s.store.Count())
	s.Require().Empty(s.timeline.FetchRecent(ctx, 10))
}

func (s *TimelineManagerSuite) TestCreatePost_CacheFailureIsIsolated() {
	before := s.addNPosts(2)
	s.timeline.SetFailure(errors.New("redis down"))

	p, err := s.manager.CreatePost(ctx, "guest", "created anyway")
	s.Require().NoError(err)
	s.Require().NotEmpty(p.PostId)
	s.Require().Equal(3, s.store.Count())
	s.Require().Equal(1, s.logs.FilterMessage("failed to record post on timeline").Len())

	s.timeline.SetFailure(nil)
	s.Require().Equal([]string{before[1].PostId, before[0].PostId}, s.timeline.FetchRecent(ctx, 10))
}

func (s *TimelineManagerSuite) TestListTimeline_FromCache() {
	posts := s.addNPosts(3)
	got, err := s.manager.ListTimeline(ctx, 50)
	s.Require().NoError(err)
	s.Require().Equal([]microblog.Post{posts[2], posts[1], posts[0]}, got)
	s.Require().Equal(1, s.logs.FilterMessage("timeline served from cache").Len())
}

func (s *TimelineManagerSuite) TestListTimeline_FollowsCacheOrderNotCreationTime() {
	posts := s.addNPosts(3)
	// a cache filled in another order wins over creation time
	reordered := inmemoryimpl.NewInMemoryTimeline(10, nil)
	reordered.Record(ctx, posts[2].PostId)
	reordered.Record(ctx, posts[0].PostId)
	reordered.Record(ctx, posts[1].PostId)
	manager := microblog.NewTimelineManager(s.store, reordered)

	got, err := manager.ListTimeline(ctx, 10)
	s.Require().NoError(err)
	s.Require().Equal([]string{posts[1].PostId, posts[0].PostId, posts[2].PostId}, ids(got))
}

func (s *TimelineManagerSuite) TestListTimeline_SkipsDeletedPosts() {
	posts := s.addNPosts(3)
	s.Require().NoError(s.manager.DeletePost(ctx, posts[1].PostId))
	s.Require().Contains(s.timeline.FetchRecent(ctx, 10), posts[1].PostId)

	got, err := s.manager.ListTimeline(ctx, 50)
	s.Require().NoError(err)
	s.Require().Equal([]microblog.Post{posts[2], posts[0]}, got)

	entries := s.logs.FilterMessage("timeline served from cache").All()
	s.Require().Len(entries, 1)
	s.Require().EqualValues(1, entries[0].ContextMap()["stale_ids"])
}

func (s *TimelineManagerSuite) TestListTimeline_AllCachedPostsDeleted() {
	posts := s.addNPosts(2)
	for _, p := range posts {
		s.Require().NoError(s.manager.DeletePost(ctx, p.PostId))
	}
	got, err := s.manager.ListTimeline(ctx, 50)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Require().Empty(got)
}

func (s *TimelineManagerSuite) TestListTimeline_FallbackWhenCacheEmpty() {
	base := time.Date(2025, 11, 9, 12, 0, 0, 0, time.UTC)
	created := []time.Time{base.Add(-48 * time.Hour), base, base.Add(-24 * time.Hour)}
	next := 0
	s.store = inmemoryimpl.NewInMemoryStore(inmemoryimpl.WithClock(func() time.Time {
		t := created[next]
		next++
		return t
	}))
	var posts []microblog.Post
	for _, body := range []string{"old", "newest", "new"} {
		p, err := s.store.AddPost(ctx, "guest", body)
		s.Require().NoError(err)
		posts = append(posts, p)
	}
	manager := microblog.NewTimelineManager(s.store, s.timeline)

	got, err := manager.ListTimeline(ctx, 50)
	s.Require().NoError(err)
	s.Require().Equal([]microblog.Post{posts[1], posts[2], posts[0]}, got)
}

func (s *TimelineManagerSuite) TestListTimeline_CacheUnavailableMatchesEmptyCache() {
	s.addNPosts(3)

	empty := microblog.NewTimelineManager(s.store, inmemoryimpl.NewInMemoryTimeline(50, nil))
	want, err := empty.ListTimeline(ctx, 50)
	s.Require().NoError(err)

	s.timeline.SetFailure(errors.New("redis down"))
	got, err := s.manager.ListTimeline(ctx, 50)
	s.Require().NoError(err)
	s.Require().Equal(want, got)
	s.Require().Len(got, 3)
	s.Require().Equal(1, s.logs.FilterMessage("timeline served from store").Len())
}

func (s *TimelineManagerSuite) TestListTimeline_NothingAnywhere() {
	got, err := s.manager.ListTimeline(ctx, 50)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Require().Empty(got)
}

func (s *TimelineManagerSuite) TestListTimeline_LimitNormalisation() {
	s.addNPosts(60)

	got, err := s.manager.ListTimeline(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(got, microblog.DefaultPageLimit)

	got, err = s.manager.ListTimeline(ctx, -3)
	s.Require().NoError(err)
	s.Require().Len(got, microblog.DefaultPageLimit)

	got, err = s.manager.ListTimeline(ctx, 1000)
	s.Require().NoError(err)
	s.Require().Len(got, microblog.DefaultPageLimit)

	got, err = s.manager.ListTimeline(ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(got, 5)
}

func (s *TimelineManagerSuite) TestListTimeline_CustomPageLimits() {
	s.addNPosts(30)
	manager := microblog.NewTimelineManager(s.store, s.timeline, microblog.WithPageLimits(10, 20))

	got, err := manager.ListTimeline(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(got, 10)

	got, err = manager.ListTimeline(ctx, 25)
	s.Require().NoError(err)
	s.Require().Len(got, 20)
}

func (s *TimelineManagerSuite) TestListTimeline_CapOverflowScenario() {
	posts := s.addNPosts(51)

	cached := s.timeline.FetchRecent(ctx, 100)
	s.Require().Len(cached, 50)
	s.Require().Equal(posts[50].PostId, cached[0])
	s.Require().Equal(posts[1].PostId, cached[49])
	s.Require().NotContains(cached, posts[0].PostId)

	got, err := s.manager.ListTimeline(ctx, 2)
	s.Require().NoError(err)
	s.Require().Equal([]microblog.Post{posts[50], posts[49]}, got)
}

func (s *TimelineManagerSuite) TestListTimeline_StoreFailurePropagates() {
	s.addNPosts(2)
	s.store.SetFailure(errors.New("db down"))

	_, err := s.manager.ListTimeline(ctx, 10)
	s.Require().ErrorIs(err, microblog.ErrStorage)

	s.timeline.SetFailure(errors.New("redis down"))
	_, err = s.manager.ListTimeline(ctx, 10)
	s.Require().ErrorIs(err, microblog.ErrStorage)
}

func (s *TimelineManagerSuite) TestGetAndDeletePost() {
	posts := s.addNPosts(1)
	got, err := s.manager.GetPost(ctx, posts[0].PostId)
	s.Require().NoError(err)
	s.Require().Equal(posts[0], got)

	s.Require().NoError(s.manager.DeletePost(ctx, posts[0].PostId))
	_, err = s.manager.GetPost(ctx, posts[0].PostId)
	s.Require().ErrorIs(err, microblog.ErrNotFound)
	s.Require().False(errors.Is(err, microblog.ErrStorage))
	s.Require().ErrorIs(s.manager.DeletePost(ctx, posts[0].PostId), microblog.ErrNotFound)
}

func (s *TimelineManagerSuite) TestIsReady() {
	s.Require().True(s.manager.IsReady(ctx))

	s.timeline.SetFailure(errors.New("redis down"))
	s.Require().True(s.manager.IsReady(ctx))
	s.Require().Equal(1, s.logs.FilterLevelExact(zapcore.WarnLevel).Len())

	s.store.SetFailure(errors.New("db down"))
	s.Require().False(s.manager.IsReady(ctx))
}

package welcome

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/models"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform/platformtest"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/templates"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/verify"
)

type stubPicker struct {
	url string
	ok  bool
}

func (p stubPicker) Pick(ctx context.Context) (string, bool) { return p.url, p.ok }

type stubFetcher struct {
	data []byte
	err  error
}

func (f stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) { return f.data, f.err }

type stubRenderer struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (r *stubRenderer) Render(bg []byte, name string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	if r.err != nil {
		return nil, r.err
	}
	return append([]byte("png:"), bg...), nil
}

var naruto = models.Member{ID: "m1", Username: "naruto"}

func joinEvent() platform.MemberJoin {
	return platform.MemberJoin{GuildID: "g1", GuildName: "Konoha", ChannelID: "welcome", Member: naruto}
}

func newClient(t *testing.T, rec *models.ConfigRecord) (platformtest.Client, store.ConfigStore) {
	t.Helper()
	client := platformtest.NewClient("data", "welcome")
	st := store.NewChannelStore(client, "data")
	if rec != nil {
		require.NoError(t, st.Save(context.Background(), rec))
	}
	return client, st
}

func welcomePosts(client platformtest.Client) []platform.Message {
	return client.Posted("welcome")
}

func TestJoinGrantsRoleAndPostsCard(t *testing.T) {
	client, st := newClient(t, &models.ConfigRecord{UnverifiedRoleID: "R", Questions: models.Questions{models.TextQuestion{Text: "Name?"}}})
	renderer := &stubRenderer{}
	w := NewWatcher(st, client, stubPicker{url: "https://cdn/bg.png", ok: true}, stubFetcher{data: []byte("bg")}, renderer, Options{}, zerolog.Nop())

	require.NoError(t, w.HandleJoin(context.Background(), joinEvent()))

	assert.True(t, client.Has("g1", "m1", "R"))
	posts := welcomePosts(client)
	require.Len(t, posts, 1)
	assert.Equal(t, "Welcome <@m1> to Konoha! Please verify to gain access.", posts[0].Content)

	files := client.Files(posts[0].ID)
	require.Len(t, files, 1)
	assert.Equal(t, "welcome.png", files[0].Name)
	assert.Equal(t, []byte("png:bg"), files[0].Data)
	assert.Equal(t, verify.EntryComponents(), client.Components(posts[0].ID))
	assert.Equal(t, []string{"naruto"}, renderer.names)
}

func TestJoinUsesCustomWelcome(t *testing.T) {
	client, st := newClient(t, &models.ConfigRecord{WelcomeMessage: "Believe it, {name}!", Questions: models.Questions{}})
	w := NewWatcher(st, client, stubPicker{}, nil, nil, Options{}, zerolog.Nop())

	require.NoError(t, w.HandleJoin(context.Background(), joinEvent()))
	posts := welcomePosts(client)
	require.Len(t, posts, 1)
	assert.Equal(t, "Believe it, naruto!", posts[0].Content)
	assert.Empty(t, client.Added)
}

func TestCardFailuresDegradeToText(t *testing.T) {
	tests := []struct {
		name     string
		picker   Picker
		fetcher  Fetcher
		renderer Renderer
	}{
		{"no template", stubPicker{}, stubFetcher{}, &stubRenderer{}},
		{"fetch fails", stubPicker{url: "u", ok: true}, stubFetcher{err: errors.New("timeout")}, &stubRenderer{}},
		{"render fails", stubPicker{url: "u", ok: true}, stubFetcher{data: []byte("x")}, &stubRenderer{err: errors.New("bad image")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, st := newClient(t, &models.ConfigRecord{UnverifiedRoleID: "R", Questions: models.Questions{}})
			w := NewWatcher(st, client, tt.picker, tt.fetcher, tt.renderer, Options{}, zerolog.Nop())

			require.NoError(t, w.HandleJoin(context.Background(), joinEvent()))
			assert.True(t, client.Has("g1", "m1", "R"))
			posts := welcomePosts(client)
			require.Len(t, posts, 1)
			assert.Empty(t, client.Files(posts[0].ID))
			assert.NotEmpty(t, client.Components(posts[0].ID))
		})
	}
}

func TestRoleFailureDoesNotBlockWelcome(t *testing.T) {
	client, st := newClient(t, &models.ConfigRecord{UnverifiedRoleID: "R", Questions: models.Questions{}})
	client.FailAdd = errors.New("missing permissions")
	w := NewWatcher(st, client, stubPicker{}, nil, nil, Options{}, zerolog.Nop())

	require.NoError(t, w.HandleJoin(context.Background(), joinEvent()))
	assert.Len(t, welcomePosts(client), 1)
}

func TestConfigUnreadableStillWelcomes(t *testing.T) {
	client := platformtest.NewClient("welcome")
	st := store.NewChannelStore(client, "missing")
	w := NewWatcher(st, client, stubPicker{}, nil, nil, Options{}, zerolog.Nop())

	require.NoError(t, w.HandleJoin(context.Background(), joinEvent()))
	posts := welcomePosts(client)
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].Content, "Please verify")
	assert.Empty(t, client.Added)
}

func TestOtherGuildIgnored(t *testing.T) {
	client, st := newClient(t, &models.ConfigRecord{UnverifiedRoleID: "R", Questions: models.Questions{}})
	w := NewWatcher(st, client, stubPicker{}, nil, nil, Options{GuildID: "g2"}, zerolog.Nop())

	require.NoError(t, w.HandleJoin(context.Background(), joinEvent()))
	assert.Empty(t, welcomePosts(client))
	assert.Empty(t, client.Added)
	assert.False(t, w.Accepts("g1"))
	assert.True(t, w.Accepts("g2"))
}

func TestPostFailureIsReturned(t *testing.T) {
	client, st := newClient(t, nil)
	w := NewWatcher(st, client, stubPicker{}, nil, nil, Options{ChannelID: "gone"}, zerolog.Nop())

	err := w.HandleJoin(context.Background(), joinEvent())
	assert.ErrorIs(t, err, platformtest.ErrUnknownChannel)
}

func TestJoinWithTemplateChannel(t *testing.T) {
	client, st := newClient(t, nil)
	tmplCh := platformtest.NewChannels("templates")
	tmplCh.Seed("templates", platform.Message{Attachments: []platform.Attachment{{URL: "https://cdn/a.png", ContentType: "image/png"}}})
	picker := templates.New(tmplCh, "templates", zerolog.Nop())

	renderer := &stubRenderer{}
	w := NewWatcher(st, client, picker, stubFetcher{data: []byte("a")}, renderer, Options{}, zerolog.Nop())
	require.NoError(t, w.HandleJoin(context.Background(), joinEvent()))

	posts := welcomePosts(client)
	require.Len(t, posts, 1)
	assert.Len(t, client.Files(posts[0].ID), 1)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("image-bytes"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", MaxBackgroundSize+1)))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(50 * time.Millisecond)
	ctx := context.Background()

	data, err := f.Fetch(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)

	_, err = f.Fetch(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")

	_, err = NewHTTPFetcher(time.Second).Fetch(ctx, srv.URL+"/big")
	assert.ErrorContains(t, err, "exceeds")

	_, err = f.Fetch(ctx, srv.URL+"/slow")
	assert.Error(t, err)
}

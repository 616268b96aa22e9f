package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/logging"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/posts"
	"github.com/dmitrijs2005/feedhub/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var errBoom = errors.New("boom")

// memStore is an in-memory stand-in for both tables. Repositories handed out
// for a transaction write straight through; rollback is checked with sqlmock
// where it matters.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	posts map[string]*models.Post
	seq   int
	base  time.Time

	// fail maps "table.Method[.field]" to the error that call returns.
	fail map[string]error
	// failLeft limits a fail entry to that many calls.
	failLeft map[string]int
	calls    []string
}

func newMemStore() *memStore {
	return &memStore{
		users: map[string]*models.User{},
		posts: map[string]*models.Post{},
		base:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		fail:  map[string]error{},

		failLeft: map[string]int{},
	}
}

func (s *memStore) hit(key string) error {
	s.calls = append(s.calls, key)
	err := s.fail[key]
	if n, ok := s.failLeft[key]; ok && err != nil {
		if n <= 1 {
			delete(s.fail, key)
			delete(s.failLeft, key)
		} else {
			s.failLeft[key] = n - 1
		}
	}
	return err
}

func (s *memStore) called(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (s *memStore) setFail(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[key] = err
}

// setFailTimes makes key fail for its next n calls only.
func (s *memStore) setFailTimes(key string, err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[key] = err
	s.failLeft[key] = n
}

func (s *memStore) addUser(id, name string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, Email: id + "@example.com", Name: name, Follows: []string{}, Followers: []string{}, Favorities: []string{}}
	s.users[id] = u
	return u
}

// addPost inserts a post that is newer than every post added before it.
func (s *memStore) addPost(author, title string) *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPost(&models.Post{UserID: author, Title: title})
}

func (s *memStore) insertPost(p *models.Post) *models.Post {
	s.seq++
	p.ID = fmt.Sprintf("p%03d", s.seq)
	p.CreatedAt = s.base.Add(time.Duration(s.seq) * time.Second)
	p.Favorities = []string{}
	s.posts[p.ID] = p
	return p
}

func (s *memStore) user(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.users[id]
	return &u
}

func (s *memStore) post(id string) (*models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// --- users.Repository ---

type memUsers struct{ s *memStore }

var _ users.Repository = memUsers{}

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.s.seq++
	u.ID = fmt.Sprintf("u%03d", r.s.seq)
	cp := *u
	cp.Follows, cp.Followers, cp.Favorities = []string{}, []string{}, []string{}
	r.s.users[u.ID] = &cp
	return u, nil
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) Exists(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.Exists"); err != nil {
		return false, err
	}
	_, ok := r.s.users[id]
	return ok, nil
}

func (r memUsers) Names(ctx context.Context, ids []string) (map[string]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.Names"); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = u.Name
		}
	}
	return out, nil
}

func (r memUsers) set(u *models.User, field users.SetField) *[]string {
	switch field {
	case users.Follows:
		return &u.Follows
	case users.Followers:
		return &u.Followers
	default:
		return &u.Favorities
	}
}

func (r memUsers) GetSet(ctx context.Context, id string, field users.SetField) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.GetSet." + string(field)); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return slices.Clone(*r.set(u, field)), nil
}

func (r memUsers) AddToSet(ctx context.Context, id string, field users.SetField, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.AddToSet." + string(field)); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	set := r.set(u, field)
	if !slices.Contains(*set, value) {
		*set = append(*set, value)
	}
	return nil
}

func (r memUsers) RemoveFromSet(ctx context.Context, id string, field users.SetField, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.RemoveFromSet." + string(field)); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	set := r.set(u, field)
	*set = slices.DeleteFunc(*set, func(v string) bool { return v == value })
	return nil
}

func (r memUsers) RemoveFromAllSets(ctx context.Context, field users.SetField, value string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.RemoveFromAllSets." + string(field)); err != nil {
		return 0, err
	}
	var n int64
	for _, u := range r.s.users {
		set := r.set(u, field)
		if slices.Contains(*set, value) {
			*set = slices.DeleteFunc(*set, func(v string) bool { return v == value })
			n++
		}
	}
	return n, nil
}

func (r memUsers) update(key, id string, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(key); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r memUsers) UpdateName(ctx context.Context, id, name string) error {
	return r.update("users.UpdateName", id, func(u *models.User) { u.Name = name })
}

func (r memUsers) UpdateEmail(ctx context.Context, id, email string) error {
	return r.update("users.UpdateEmail", id, func(u *models.User) { u.Email = email })
}

func (r memUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.update("users.UpdatePasswordHash", id, func(u *models.User) { u.PasswordHash = hash })
}

func (r memUsers) RepairFollowers(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.RepairFollowers"); err != nil {
		return 0, err
	}
	want := map[string][]string{}
	for _, u := range r.s.users {
		for _, f := range u.Follows {
			want[f] = append(want[f], u.ID)
		}
	}
	var n int64
	for _, u := range r.s.users {
		if !sameSet(u.Followers, want[u.ID]) {
			u.Followers = append([]string{}, want[u.ID]...)
			n++
		}
	}
	return n, nil
}

func (r memUsers) PruneFavorities(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.PruneFavorities"); err != nil {
		return 0, err
	}
	var n int64
	for _, u := range r.s.users {
		kept := slices.DeleteFunc(slices.Clone(u.Favorities), func(id string) bool {
			_, ok := r.s.posts[id]
			return !ok
		})
		if len(kept) != len(u.Favorities) {
			u.Favorities = kept
			n++
		}
	}
	return n, nil
}

func sameSet(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	sort.Strings(a)
	sort.Strings(b)
	return slices.Equal(a, b)
}

// --- posts.Repository ---

type memPosts struct{ s *memStore }

var _ posts.Repository = memPosts{}

func (r memPosts) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("posts.Create"); err != nil {
		return nil, err
	}
	cp := *p
	r.s.insertPost(&cp)
	p.ID, p.CreatedAt = cp.ID, cp.CreatedAt
	return p, nil
}

func (r memPosts) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("posts.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memPosts) SetPictureName(ctx context.Context, id, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("posts.SetPictureName"); err != nil {
		return err
	}
	p, ok := r.s.posts[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.PictureName = &name
	return nil
}

func (r memPosts) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("posts.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.posts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.posts, id)
	return nil
}

func (r memPosts) selectWhere(key string, limit int, keep func(*models.Post) bool) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(key); err != nil {
		return nil, err
	}
	out := []*models.Post{}
	for _, p := range r.s.posts {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memPosts) SelectAll(ctx context.Context, limit int) ([]*models.Post, error) {
	return r.selectWhere("posts.SelectAll", limit, func(*models.Post) bool { return true })
}

func (r memPosts) SelectByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	return r.selectWhere("posts.SelectByAuthors", limit, func(p *models.Post) bool { return slices.Contains(authorIDs, p.UserID) })
}

func (r memPosts) SelectByIDs(ctx context.Context, ids []string) ([]*models.Post, error) {
	return r.selectWhere("posts.SelectByIDs", 0, func(p *models.Post) bool { return slices.Contains(ids, p.ID) })
}

func (r memPosts) favoriters(key, postID string, fn func(p *models.Post)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(key); err != nil {
		return err
	}
	p, ok := r.s.posts[postID]
	if !ok {
		return common.ErrorNotFound
	}
	fn(p)
	return nil
}

func (r memPosts) AddFavoriter(ctx context.Context, postID, userID string) error {
	return r.favoriters("posts.AddFavoriter", postID, func(p *models.Post) {
		if !slices.Contains(p.Favorities, userID) {
			p.Favorities = append(p.Favorities, userID)
		}
	})
}

func (r memPosts) RemoveFavoriter(ctx context.Context, postID, userID string) error {
	return r.favoriters("posts.RemoveFavoriter", postID, func(p *models.Post) {
		p.Favorities = slices.DeleteFunc(p.Favorities, func(v string) bool { return v == userID })
	})
}

func (r memPosts) RepairFavorities(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("posts.RepairFavorities"); err != nil {
		return 0, err
	}
	want := map[string][]string{}
	for _, u := range r.s.users {
		for _, pid := range u.Favorities {
			want[pid] = append(want[pid], u.ID)
		}
	}
	var n int64
	for _, p := range r.s.posts {
		if !sameSet(p.Favorities, want[p.ID]) {
			p.Favorities = append([]string{}, want[p.ID]...)
			n++
		}
	}
	return n, nil
}

// --- repository manager ---

type fakeRepoManager struct{ s *memStore }

func (m fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m fakeRepoManager) Users(dbx.DBTX) users.Repository             { return memUsers{m.s} }
func (m fakeRepoManager) Posts(dbx.DBTX) posts.Repository             { return memPosts{m.s} }

// --- blobs ---

type fakeBlobs struct {
	mu      sync.Mutex
	puts    map[string][]byte
	deletes []string
	putErr  error
	delErr  error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{puts: map[string][]byte{}} }

func (b *fakeBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.puts[key] = data
	return nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, key)
	return b.delErr
}

func (b *fakeBlobs) PublicURL(key string) string { return "https://cdn.test/" + key }

// --- wiring ---

// txDB is a real database handle so dbx.WithTx can begin and commit; the
// fake repositories never send it a query.
func txDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

type env struct {
	store     *memStore
	blobs     *fakeBlobs
	profiles  *ProfileService
	graph     *GraphService
	favorites *FavoriteService
	posts     *PostService
	feed      *FeedService
}

func newEnvWithDB(t *testing.T, db *sql.DB) *env {
	t.Helper()
	store := newMemStore()
	rm := fakeRepoManager{s: store}
	log := logging.Nop()
	blobs := newFakeBlobs()

	profiles := NewProfileService(db, rm, log, 4)
	graph := NewGraphService(db, rm, log)
	favorites := NewFavoriteService(db, rm, log)
	postSvc := NewPostService(db, rm, blobs, profiles, favorites, log)

	return &env{
		store:     store,
		blobs:     blobs,
		profiles:  profiles,
		graph:     graph,
		favorites: favorites,
		posts:     postSvc,
		feed:      NewFeedService(postSvc, graph, log),
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithDB(t, txDB(t))
}

func ids(entries []*models.FeedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

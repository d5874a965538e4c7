package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"unistay/internal/models"
	"unistay/internal/repositories"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[int]*models.User
	nextID    int
	createErr error

	// missLookups hides the next n GetByEmail hits, as if a concurrent
	// insert landed right after the read
	missLookups int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missLookups > 0 {
		r.missLookups--
		return nil, nil
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[int]*models.Post
	nextID int
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	r := &fakePostRepo{posts: map[int]*models.Post{}}
	for _, p := range posts {
		r.posts[p.ID] = p
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
	}
	return r
}

func (r *fakePostRepo) Create(_ context.Context, p *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id int) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakePostRepo) List(_ context.Context, limit, offset int) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*models.Post
	for id := 1; id <= r.nextID; id++ {
		if p, ok := r.posts[id]; ok {
			cp := *p
			res = append(res, &cp)
		}
	}
	if offset >= len(res) {
		return nil, nil
	}
	res = res[offset:]
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *fakePostRepo) ListByOwner(_ context.Context, ownerID int) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*models.Post
	for _, p := range r.posts {
		if p.OwnerID == ownerID {
			cp := *p
			res = append(res, &cp)
		}
	}
	return res, nil
}

// fakeInterestRepo fills the joined columns from the user and post fakes,
// like the SQL join does.
type fakeInterestRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*models.InterestRequest
	users     *fakeUserRepo
	posts     *fakePostRepo
	createErr error

	// lostRaces makes the next n UpdateIfVersion calls lose to a concurrent writer
	lostRaces int
	updates   int
}

func newFakeInterestRepo(users *fakeUserRepo, posts *fakePostRepo) *fakeInterestRepo {
	return &fakeInterestRepo{items: map[uuid.UUID]*models.InterestRequest{}, users: users, posts: posts}
}

func cloneInterest(ir *models.InterestRequest) *models.InterestRequest {
	cp := *ir
	if ir.Availability != nil {
		a := *ir.Availability
		cp.Availability = &a
	}
	if ir.AppointmentDateTime != nil {
		t := *ir.AppointmentDateTime
		cp.AppointmentDateTime = &t
	}
	if ir.LastUpdatedBy != nil {
		id := *ir.LastUpdatedBy
		cp.LastUpdatedBy = &id
	}
	return &cp
}

func (r *fakeInterestRepo) join(ir *models.InterestRequest) *models.InterestRequest {
	cp := cloneInterest(ir)
	if p := r.posts.posts[cp.PostID]; p != nil {
		cp.PostTitle = p.Title
		cp.PostOwnerID = p.OwnerID
		if o := r.users.users[p.OwnerID]; o != nil {
			cp.PostOwnerEmail = o.Email
		}
	}
	if s := r.users.users[cp.StudentID]; s != nil {
		cp.StudentEmail = s.Email
	}
	return cp
}

// put stores a request directly, bypassing Create.
func (r *fakeInterestRepo) put(ir *models.InterestRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ir.ID == uuid.Nil {
		ir.ID = uuid.New()
	}
	r.items[ir.ID] = cloneInterest(ir)
}

func (r *fakeInterestRepo) stored(id uuid.UUID) *models.InterestRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ir, ok := r.items[id]; ok {
		return cloneInterest(ir)
	}
	return nil
}

func (r *fakeInterestRepo) Create(_ context.Context, ir *models.InterestRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.items {
		if existing.PostID == ir.PostID && existing.StudentID == ir.StudentID {
			return repositories.ErrDuplicate
		}
	}
	ir.RowVersion = 1
	ir.CreatedAt = time.Now()
	ir.UpdatedAt = ir.CreatedAt
	r.items[ir.ID] = cloneInterest(ir)
	return nil
}

func (r *fakeInterestRepo) GetByID(_ context.Context, id uuid.UUID) (*models.InterestRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ir, ok := r.items[id]; ok {
		return r.join(ir), nil
	}
	return nil, nil
}

func (r *fakeInterestRepo) GetByPostAndStudent(_ context.Context, postID, studentID int) (*models.InterestRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ir := range r.items {
		if ir.PostID == postID && ir.StudentID == studentID {
			return r.join(ir), nil
		}
	}
	return nil, nil
}

func (r *fakeInterestRepo) filter(keep func(*models.InterestRequest) bool) []*models.InterestRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*models.InterestRequest
	for _, ir := range r.items {
		j := r.join(ir)
		if keep(j) {
			res = append(res, j)
		}
	}
	return res
}

func (r *fakeInterestRepo) ListByStudent(_ context.Context, studentID int) ([]*models.InterestRequest, error) {
	return r.filter(func(ir *models.InterestRequest) bool { return ir.StudentID == studentID }), nil
}

func (r *fakeInterestRepo) ListByPostOwner(_ context.Context, ownerID int) ([]*models.InterestRequest, error) {
	return r.filter(func(ir *models.InterestRequest) bool { return ir.PostOwnerID == ownerID }), nil
}

func (r *fakeInterestRepo) ListConfirmedByOwner(_ context.Context, ownerID int, status models.InterestStatus) ([]*models.InterestRequest, error) {
	return r.filter(func(ir *models.InterestRequest) bool {
		return ir.PostOwnerID == ownerID && ir.Status == status && ir.AppointmentConfirmedByStudent
	}), nil
}

func (r *fakeInterestRepo) UpdateIfVersion(_ context.Context, ir *models.InterestRequest) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[ir.ID]
	if !ok {
		return false, nil
	}
	if r.lostRaces > 0 {
		r.lostRaces--
		current.RowVersion++
		return false, nil
	}
	if current.RowVersion != ir.RowVersion {
		return false, nil
	}
	r.updates++
	ir.RowVersion++
	ir.UpdatedAt = time.Now()
	stored := cloneInterest(ir)
	r.items[ir.ID] = stored
	return true, nil
}

type fakePaymentRepo struct {
	mu   sync.Mutex
	paid map[uuid.UUID]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{paid: map[uuid.UUID]*models.Payment{}}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.paid[p.InterestRequestID]; ok {
		return repositories.ErrDuplicate
	}
	p.ID = len(r.paid) + 1
	p.CreatedAt = time.Now()
	cp := *p
	r.paid[p.InterestRequestID] = &cp
	return nil
}

func (r *fakePaymentRepo) ExistsForInterestRequest(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.paid[id]
	return ok, nil
}

type fakeResetRepo struct {
	mu       sync.Mutex
	tokens   map[int]*models.PasswordResetToken
	users    *fakeUserRepo
	nextID   int
	purgedAt time.Time

	// failWrites makes the next n ConsumeAndSetPassword calls fail as a
	// rolled-back transaction would: nothing changes
	failWrites int
}

func newFakeResetRepo(users *fakeUserRepo) *fakeResetRepo {
	return &fakeResetRepo{tokens: map[int]*models.PasswordResetToken{}, users: users}
}

func (r *fakeResetRepo) Create(_ context.Context, userID int, hash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t := &models.PasswordResetToken{ID: r.nextID, UserID: userID, TokenHash: hash, ExpiresAt: expiresAt}
	r.tokens[t.ID] = t
	cp := *t
	return &cp, nil
}

func (r *fakeResetRepo) GetByTokenHash(_ context.Context, hash string) (*models.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeResetRepo) ConsumeAndSetPassword(_ context.Context, id, userID int, hash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Used || now.After(t.ExpiresAt) {
		return false, nil
	}
	if r.failWrites > 0 {
		r.failWrites--
		return false, errors.New("db down")
	}

	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	u, ok := r.users.users[userID]
	if !ok {
		return false, errors.New("no such user")
	}
	u.PasswordHash = hash
	t.Used = true
	t.UsedAt = &now
	return true, nil
}

func (r *fakeResetRepo) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgedAt = before
	var n int64
	for id, t := range r.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *recordingNotifier) Enqueue(msg Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

// scriptedChannel fails the first failures deliveries, then succeeds.
type scriptedChannel struct {
	mu        sync.Mutex
	name      string
	failures  int
	block     bool
	attempts  int
	delivered []Notification
}

func (c *scriptedChannel) Name() string { return c.name }

func (c *scriptedChannel) Deliver(ctx context.Context, n Notification) error {
	c.mu.Lock()
	c.attempts++
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	block := c.block
	c.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail {
		return errors.New("smtp: connection refused")
	}
	c.mu.Lock()
	c.delivered = append(c.delivered, n)
	c.mu.Unlock()
	return nil
}

func (c *scriptedChannel) counts() (attempts, delivered int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts, len(c.delivered)
}

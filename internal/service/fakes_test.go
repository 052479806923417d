package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/auth"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
)

// fakeStore is an in-memory implementation of the three repository
// interfaces. Setting err makes every call fail with it.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	lists  map[string]*model.ItemsList
	items  map[string]*model.Item
	nextID int
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*model.User),
		lists: make(map[string]*model.ItemsList),
		items: make(map[string]*model.Item),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) UpsertFromProfile(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var match *model.User
	for _, u := range f.users {
		if user.Email != "" && u.Email == user.Email {
			match = u
			break
		}
	}
	if match == nil {
		for _, u := range f.users {
			if u.OAuth == user.OAuth {
				match = u
				break
			}
		}
	}
	if match != nil {
		match.OAuth, match.Name, match.Picture = user.OAuth, user.Name, user.Picture
		if user.Email != "" {
			match.Email = user.Email
		}
		out := *match
		return &out, nil
	}
	u := *user
	u.ID = f.id("user")
	f.users[u.ID] = &u
	out := u
	return &out, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("User", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeStore) SearchUsers(_ context.Context, query string, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.User{}
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) || u.Email == query {
			out = append(out, *u)
		}
	}
	slices.SortFunc(out, func(a, b model.User) int { return strings.Compare(a.Name, b.Name) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) SetDeviceID(_ context.Context, userID, deviceID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, apperror.NotFound("User", userID)
	}
	u.DeviceID = deviceID
	out := *u
	return &out, nil
}

func (f *fakeStore) CreateListForUser(_ context.Context, list *model.ItemsList, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, l := range f.lists {
		if !l.Deleted && l.Name == list.Name && l.HasCollaborator(ownerID) {
			return apperror.Conflict("ItemList with this name already exists for a user: " + list.Name)
		}
	}
	list.ID = f.id("list")
	list.CollaboratingUsers = []string{ownerID}
	stored := *list
	stored.CollaboratingUsers = slices.Clone(list.CollaboratingUsers)
	f.lists[list.ID] = &stored
	return nil
}

func (f *fakeStore) GetListByID(_ context.Context, id string) (*model.ItemsList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	l, ok := f.lists[id]
	if !ok {
		return nil, apperror.NotFound("Items list", id)
	}
	return cloneList(l), nil
}

func (f *fakeStore) ListListsForUser(_ context.Context, userID string) ([]model.ItemsList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.ItemsList{}
	for _, l := range f.lists {
		if !l.Deleted && l.HasCollaborator(userID) {
			out = append(out, *cloneList(l))
		}
	}
	slices.SortFunc(out, func(a, b model.ItemsList) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeStore) AddCollaborator(_ context.Context, listID, userID string) (*model.ItemsList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	l, ok := f.lists[listID]
	if !ok {
		return nil, apperror.NotFound("Items list", listID)
	}
	if l.HasCollaborator(userID) {
		return nil, apperror.Conflict("User already has access to the list")
	}
	l.CollaboratingUsers = append(l.CollaboratingUsers, userID)
	return cloneList(l), nil
}

func (f *fakeStore) SoftDeleteList(_ context.Context, listID, whoRemoved string, at int64) (*model.ItemsList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	l, ok := f.lists[listID]
	if !ok || l.Deleted {
		return nil, apperror.NotFound("Items list", listID)
	}
	l.Deleted, l.WhoRemoved, l.TimeRemoved = true, whoRemoved, at
	return cloneList(l), nil
}

func (f *fakeStore) CreateItem(_ context.Context, item *model.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, it := range f.items {
		if !it.Deleted && it.ItemsList == item.ItemsList && it.Name == item.Name {
			return apperror.Conflict("Item with this name already exists in the list " + item.ItemsList)
		}
	}
	item.ID = f.id("item")
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeStore) GetItemByID(_ context.Context, id string) (*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	it, ok := f.items[id]
	if !ok {
		return nil, apperror.NotFound("Item", id)
	}
	out := *it
	return &out, nil
}

func (f *fakeStore) ListActiveItems(_ context.Context, listID string) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Item{}
	for _, it := range f.items {
		if !it.Deleted && it.ItemsList == listID {
			out = append(out, *it)
		}
	}
	slices.SortFunc(out, func(a, b model.Item) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeStore) SoftDeleteItem(_ context.Context, itemID, whoRemoved string, at int64) (*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	it, ok := f.items[itemID]
	if !ok || it.Deleted {
		return nil, apperror.NotFound("Item", itemID)
	}
	it.Deleted, it.WhoRemoved, it.TimeRemoved = true, whoRemoved, at
	out := *it
	return &out, nil
}

func cloneList(l *model.ItemsList) *model.ItemsList {
	out := *l
	out.CollaboratingUsers = slices.Clone(l.CollaboratingUsers)
	return &out
}

// fakeProvider answers FetchProfile from a token → profile map.
type fakeProvider struct {
	profiles map[string]*auth.ProviderProfile
	codes    map[string]string
	calls    int
}

func (p *fakeProvider) FetchProfile(_ context.Context, accessToken string) (*auth.ProviderProfile, error) {
	p.calls++
	profile, ok := p.profiles[accessToken]
	if !ok {
		return nil, apperror.Unauthorized(auth.ErrProviderUnauthorized, "Invalid OAuth access token.")
	}
	return profile, nil
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (string, error) {
	token, ok := p.codes[code]
	if !ok {
		return "", apperror.Unauthorized(auth.ErrProviderUnauthorized, "Facebook rejected the authorization code")
	}
	return token, nil
}

func (p *fakeProvider) GraphURL() string { return auth.DefaultGraphURL }

// fakeIssuer signs nothing; the credential is derived from the user id.
type fakeIssuer struct {
	err error
}

func (i *fakeIssuer) Issue(userID string) (string, error) {
	if i.err != nil {
		return "", i.err
	}
	return "credential-for-" + userID, nil
}

// countingRecorder implements every *Recorder interface of the package.
type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: map[string]int{}}
}

func (r *countingRecorder) inc(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key]++
}

func (r *countingRecorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *countingRecorder) RecordLogin(outcome string)        { r.inc("login:" + outcome) }
func (r *countingRecorder) RecordInvite(outcome string)       { r.inc("invite:" + outcome) }
func (r *countingRecorder) RecordNotification(outcome string) { r.inc("notify:" + outcome) }

// recordingNotifier remembers every invitation it was told about.
type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) InviteSent(_ context.Context, inviter *model.User, list *model.ItemsList, invitee *model.User) error {
	n.sent = append(n.sent, inviter.ID+"->"+invitee.ID+"@"+list.ID)
	return n.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

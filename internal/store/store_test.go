package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jjenkins/foirequests/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	if _, err := NewDB("mysql", "root@/foi"); err == nil {
		t.Fatal("expected an error for an unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	query := `SELECT * FROM t WHERE a = ? AND b = ?`

	pg := &DB{Dialect: Postgres}
	if got, want := pg.rebind(query), `SELECT * FROM t WHERE a = $1 AND b = $2`; got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}

	lite := &DB{Dialect: SQLite}
	if got := lite.rebind(query); got != query {
		t.Errorf("sqlite rebind = %q, want it unchanged", got)
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSummaryStoreUpsert(t *testing.T) {
	ctx := context.Background()
	summaries := NewSummaryStore(newTestDB(t))
	owner := model.Owner{Type: model.TypeInfoRequestBatch, ID: 5}

	missing, err := summaries.FindByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("FindByOwner: %v", err)
	}
	if missing != nil {
		t.Fatalf("FindByOwner on empty table = %+v, want nil", missing)
	}

	first := &model.RequestSummary{
		Title:           "Batch",
		Body:            "Dear all",
		PublicBodyNames: sql.NullString{String: "Alpha Beta", Valid: true},
		Summarisable:    owner,
	}
	if err := summaries.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("Upsert did not set ID")
	}

	// a second insert for the same owner updates the existing row
	second := &model.RequestSummary{Title: "Renamed", Body: "Dear all", Summarisable: owner}
	if err := summaries.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("conflicting upsert ID = %d, want %d", second.ID, first.ID)
	}

	got, err := summaries.FindByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("FindByOwner: %v", err)
	}
	if got.Title != "Renamed" || got.PublicBodyNames.Valid {
		t.Errorf("stored summary = %+v, want renamed with NULL names", got)
	}
	if got.Summarisable != owner {
		t.Errorf("Summarisable = %s, want %s", got.Summarisable, owner)
	}

	count, err := summaries.CountByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("CountByOwner: %v", err)
	}
	if count != 1 {
		t.Errorf("CountByOwner = %d, want 1", count)
	}
}

func TestSummaryStoreDeleteAndCount(t *testing.T) {
	ctx := context.Background()
	summaries := NewSummaryStore(newTestDB(t))

	owners := []model.Owner{
		{Type: model.TypeInfoRequest, ID: 1},
		{Type: model.TypeInfoRequest, ID: 2},
		{Type: model.TypeDraftInfoRequest, ID: 1},
	}
	for _, o := range owners {
		if err := summaries.Upsert(ctx, &model.RequestSummary{Title: o.String(), Summarisable: o}); err != nil {
			t.Fatalf("Upsert(%s): %v", o, err)
		}
	}

	counts, err := summaries.CountByType(ctx)
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if counts[model.TypeInfoRequest] != 2 || counts[model.TypeDraftInfoRequest] != 1 {
		t.Errorf("CountByType = %v", counts)
	}

	deleted, err := summaries.DeleteByOwner(ctx, owners[0])
	if err != nil {
		t.Fatalf("DeleteByOwner: %v", err)
	}
	if !deleted {
		t.Error("DeleteByOwner reported nothing deleted")
	}
	deleted, err = summaries.DeleteByOwner(ctx, owners[0])
	if err != nil {
		t.Fatalf("DeleteByOwner: %v", err)
	}
	if deleted {
		t.Error("second DeleteByOwner reported a deletion")
	}
}

func TestSummaryStoreSearch(t *testing.T) {
	ctx := context.Background()
	summaries := NewSummaryStore(newTestDB(t))

	fixtures := []*model.RequestSummary{
		{Title: "Parking fines", Body: "How many were issued", Summarisable: model.Owner{Type: model.TypeInfoRequest, ID: 1}},
		{Title: "Bin collections", Body: "Schedule", PublicBodyNames: sql.NullString{String: "Parkside Council", Valid: true}, Summarisable: model.Owner{Type: model.TypeInfoRequest, ID: 2}},
		{Title: "Library hours", Body: "Opening times", Summarisable: model.Owner{Type: model.TypeInfoRequest, ID: 3}},
	}
	for i, sum := range fixtures {
		sum.CreatedAt = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)
		if err := summaries.Upsert(ctx, sum); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	got, err := summaries.Search(ctx, "PARK", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search returned %d results, want 2", len(got))
	}
	// most recently updated first
	if got[0].Title != "Bin collections" || got[1].Title != "Parking fines" {
		t.Errorf("Search order = [%s, %s]", got[0].Title, got[1].Title)
	}

	got, err = summaries.Search(ctx, "park", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Search with limit 1 returned %d results", len(got))
	}
}

func TestRequestStoreInfoRequestRoundTrip(t *testing.T) {
	ctx := context.Background()
	requests := NewRequestStore(newTestDB(t))

	pb := &model.PublicBody{Name: "Department of Transport"}
	if err := requests.CreatePublicBody(ctx, pb); err != nil {
		t.Fatalf("CreatePublicBody: %v", err)
	}

	r := &model.InfoRequest{
		Title:            "Road closures",
		UserID:           11,
		PublicBody:       pb,
		LawUsed:          "eir",
		OutgoingMessages: []model.OutgoingMessage{{Body: "Please send the closure list"}},
	}
	if err := requests.SaveInfoRequest(ctx, r); err != nil {
		t.Fatalf("SaveInfoRequest: %v", err)
	}
	if r.ID == 0 || r.OutgoingMessages[0].ID == 0 {
		t.Fatalf("IDs not set: request=%d message=%d", r.ID, r.OutgoingMessages[0].ID)
	}

	// saving again only inserts the new message
	r.OutgoingMessages = append(r.OutgoingMessages, model.OutgoingMessage{Body: "Any update?", CreatedAt: r.OutgoingMessages[0].CreatedAt.Add(time.Hour)})
	r.Title = "Road closures 2024"
	if err := requests.SaveInfoRequest(ctx, r); err != nil {
		t.Fatalf("SaveInfoRequest: %v", err)
	}

	if err := requests.AddIncomingMessage(ctx, &model.IncomingMessage{InfoRequestID: r.ID, Refusals: []string{"s12", "s14"}}); err != nil {
		t.Fatalf("AddIncomingMessage: %v", err)
	}
	if err := requests.AddIncomingMessage(ctx, &model.IncomingMessage{InfoRequestID: r.ID}); err != nil {
		t.Fatalf("AddIncomingMessage: %v", err)
	}

	got, err := requests.GetInfoRequest(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetInfoRequest: %v", err)
	}
	if got.Title != "Road closures 2024" || got.UserID != 11 || got.LawUsed != "eir" {
		t.Errorf("GetInfoRequest = %+v", got)
	}
	if got.PublicBody == nil || got.PublicBody.Name != "Department of Transport" {
		t.Errorf("PublicBody = %+v", got.PublicBody)
	}
	if len(got.OutgoingMessages) != 2 || got.OutgoingMessages[0].Body != "Please send the closure list" {
		t.Errorf("OutgoingMessages = %+v", got.OutgoingMessages)
	}
	if len(got.IncomingMessages) != 2 {
		t.Fatalf("IncomingMessages = %+v", got.IncomingMessages)
	}
	if refusals := got.IncomingMessages[0].Refusals; len(refusals) != 2 || refusals[1] != "s14" {
		t.Errorf("Refusals = %v", refusals)
	}
	if refusals := got.IncomingMessages[1].Refusals; len(refusals) != 0 {
		t.Errorf("Refusals = %v, want empty", refusals)
	}

	law, ok := got.Legislation()
	if !ok || law.Key != "eir" {
		t.Errorf("Legislation() = %v, %v", law, ok)
	}
}

func TestRequestStoreBatchBodiesKeepOrder(t *testing.T) {
	ctx := context.Background()
	requests := NewRequestStore(newTestDB(t))

	var bodies []model.PublicBody
	for _, name := range []string{"Gamma", "Alpha", "Beta"} {
		pb := model.PublicBody{Name: name}
		if err := requests.CreatePublicBody(ctx, &pb); err != nil {
			t.Fatalf("CreatePublicBody: %v", err)
		}
		bodies = append(bodies, pb)
	}

	d := &model.DraftInfoRequestBatch{Title: "Draft", PublicBodies: bodies}
	if err := requests.SaveDraftInfoRequestBatch(ctx, d); err != nil {
		t.Fatalf("SaveDraftInfoRequestBatch: %v", err)
	}

	d.PublicBodies = []model.PublicBody{bodies[2], bodies[0]}
	if err := requests.SaveDraftInfoRequestBatch(ctx, d); err != nil {
		t.Fatalf("SaveDraftInfoRequestBatch: %v", err)
	}

	got, err := requests.GetDraftInfoRequestBatch(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDraftInfoRequestBatch: %v", err)
	}
	if len(got.PublicBodies) != 2 || got.PublicBodies[0].Name != "Beta" || got.PublicBodies[1].Name != "Gamma" {
		t.Errorf("PublicBodies = %+v, want [Beta Gamma]", got.PublicBodies)
	}
}

func TestRequestStoreGet(t *testing.T) {
	ctx := context.Background()
	requests := NewRequestStore(newTestDB(t))

	draft := &model.DraftInfoRequest{Title: "Untargeted"}
	if err := requests.SaveDraftInfoRequest(ctx, draft); err != nil {
		t.Fatalf("SaveDraftInfoRequest: %v", err)
	}

	src, err := requests.Get(ctx, draft.SummaryOwner())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	loaded, ok := src.(*model.DraftInfoRequest)
	if !ok {
		t.Fatalf("Get returned %T", src)
	}
	if loaded.Title != "Untargeted" || loaded.PublicBody != nil {
		t.Errorf("loaded = %+v", loaded)
	}

	_, err = requests.Get(ctx, model.Owner{Type: model.TypeInfoRequestBatch, ID: 99})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}

	if _, err := requests.Get(ctx, model.Owner{Type: "comment", ID: 1}); err == nil {
		t.Error("Get with unknown type should fail")
	}

	ids, err := requests.ListIDs(ctx, model.TypeDraftInfoRequest)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != draft.ID {
		t.Errorf("ListIDs = %v, want [%d]", ids, draft.ID)
	}
}

type notifierFunc func(ctx context.Context, src model.Summarisable) error

func (f notifierFunc) AfterSave(ctx context.Context, src model.Summarisable) error {
	return f(ctx, src)
}

func TestRequestStoreNotifiesAfterSave(t *testing.T) {
	ctx := context.Background()

	var seen []model.Owner
	notify := notifierFunc(func(ctx context.Context, src model.Summarisable) error {
		seen = append(seen, src.SummaryOwner())
		return nil
	})
	requests := NewRequestStore(newTestDB(t), WithSaveNotifier(notify))

	r := &model.InfoRequest{Title: "Notify me"}
	if err := requests.SaveInfoRequest(ctx, r); err != nil {
		t.Fatalf("SaveInfoRequest: %v", err)
	}
	b := &model.InfoRequestBatch{Title: "Batch"}
	if err := requests.SaveInfoRequestBatch(ctx, b); err != nil {
		t.Fatalf("SaveInfoRequestBatch: %v", err)
	}

	want := []model.Owner{r.SummaryOwner(), b.SummaryOwner()}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Errorf("notified %v, want %v", seen, want)
	}

	failing := NewRequestStore(requests.db, WithSaveNotifier(notifierFunc(func(context.Context, model.Summarisable) error {
		return errors.New("boom")
	})))
	d := &model.DraftInfoRequest{Title: "Still saved"}
	if err := failing.SaveDraftInfoRequest(ctx, d); err == nil {
		t.Fatal("expected the notifier error to be returned")
	}
	if got, err := failing.GetDraftInfoRequest(ctx, d.ID); err != nil || got == nil {
		t.Errorf("draft should be committed before notification: %v, %v", got, err)
	}
}

func TestRequestStoreDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	requests := NewRequestStore(db)
	summaries := NewSummaryStore(db)

	r := &model.InfoRequest{Title: "Doomed", OutgoingMessages: []model.OutgoingMessage{{Body: "Hello"}}}
	if err := requests.SaveInfoRequest(ctx, r); err != nil {
		t.Fatalf("SaveInfoRequest: %v", err)
	}
	if err := summaries.Upsert(ctx, &model.RequestSummary{Title: r.Title, Body: "Hello", Summarisable: r.SummaryOwner()}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := requests.Delete(ctx, r.SummaryOwner()); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got, err := requests.GetInfoRequest(ctx, r.ID); err != nil || got != nil {
		t.Errorf("GetInfoRequest after delete = %+v, %v", got, err)
	}
	if sum, err := summaries.FindByOwner(ctx, r.SummaryOwner()); err != nil || sum != nil {
		t.Errorf("summary after delete = %+v, %v", sum, err)
	}
	var messages int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outgoing_messages`).Scan(&messages); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if messages != 0 {
		t.Errorf("outgoing messages left = %d", messages)
	}

	if err := requests.Delete(ctx, r.SummaryOwner()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

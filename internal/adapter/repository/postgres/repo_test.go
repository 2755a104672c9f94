package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/domain"
)

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) *Tx {
	t.Helper()
	pool.ExpectBeginTx(sessionTxOptions)
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	return tx.(*Tx)
}

func TestSessionRepositoryGetOpenByEmailNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM open_session_members").
		WithArgs("ann@example.com").
		WillReturnRows(pool.NewRows([]string{"session_id"}))

	repo := newSessionRepositoryWithDB(pool)
	_, err := repo.GetOpenByEmail(context.Background(), "ann@example.com")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestSessionRepositoryGetOpenByEmailLoadsSession(t *testing.T) {
	pool := newMockPool(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	barcode := "5449000000996"

	pool.ExpectQuery("FROM open_session_members").
		WithArgs("ann@example.com").
		WillReturnRows(pool.NewRows([]string{"session_id"}).AddRow("S1"))
	pool.ExpectQuery("FROM sessions WHERE id").
		WithArgs("S1").
		WillReturnRows(pool.NewRows([]string{"creation_date", "end_date"}).
			AddRow(created, nil))
	pool.ExpectQuery("FROM session_participants").
		WithArgs("S1").
		WillReturnRows(pool.NewRows([]string{"email", "display_name", "photo_url", "amount_paid", "amount_owed"}).
			AddRow("ann@example.com", "Ann", "", "10", "5").
			AddRow("bob@example.com", "", "", "0", "5"))
	pool.ExpectQuery("FROM product_instances pi").
		WithArgs("S1").
		WillReturnRows(pool.NewRows([]string{"id", "quantity", "unit_price", "created_at", "pid", "barcode", "name"}).
			AddRow("P1", 2, "5", created, "C1", &barcode, "Cola"))
	pool.ExpectQuery("FROM product_instance_participants").
		WithArgs("S1").
		WillReturnRows(pool.NewRows([]string{"instance_id", "email"}).
			AddRow("P1", "ann@example.com").
			AddRow("P1", "bob@example.com"))

	repo := newSessionRepositoryWithDB(pool)
	session, err := repo.GetOpenByEmail(context.Background(), "ann@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !session.IsOpen() || len(session.Participants) != 2 || len(session.Products) != 1 {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !session.Participants[0].AmountPaid.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected paid 10, got %s", session.Participants[0].AmountPaid)
	}
	product := session.Products[0]
	if product.Product.Name != "Cola" || len(product.Participants) != 2 || !product.TotalPrice().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected product: %+v", product)
	}

	assertExpectations(t, pool)
}

func TestSessionRepositoryCreateMapsMembershipConflict(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	session := domain.NewSession("S1", domain.Profile{Email: "ann@example.com"}, time.Now().UTC())

	pool.ExpectExec("INSERT INTO sessions").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("INSERT INTO session_participants").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("INSERT INTO open_session_members").
		WithArgs("ann@example.com", "S1").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	repo := newSessionRepositoryWithDB(pool)
	err := repo.Create(context.Background(), tx, &session)
	if !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestSessionRepositorySaveClosedReleasesMembership(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	end := time.Now().UTC()
	session := domain.NewSession("S1", domain.Profile{Email: "ann@example.com"}, end.Add(-time.Hour))
	session.EndDate = &end

	pool.ExpectExec("UPDATE sessions SET end_date").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec("DELETE FROM open_session_members").
		WithArgs("S1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectExec("DELETE FROM product_instances").
		WithArgs("S1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectExec("DELETE FROM session_participants").
		WithArgs("S1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectExec("INSERT INTO session_participants").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := newSessionRepositoryWithDB(pool)
	if err := repo.Save(context.Background(), tx, &session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, pool)
}

func TestSessionRepositoryDeleteMissing(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	pool.ExpectExec("DELETE FROM sessions").
		WithArgs("S404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := newSessionRepositoryWithDB(pool)
	if err := repo.Delete(context.Background(), tx, "S404"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestProductRepositoryResolveByNameCreatesProduct(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	pool.ExpectQuery("WHERE lower\\(name\\) = lower").
		WithArgs("Bread").
		WillReturnRows(pool.NewRows([]string{"id", "barcode", "name"}))
	pool.ExpectQuery("INSERT INTO products").
		WithArgs("NEW", "Bread", pgxmock.AnyArg()).
		WillReturnRows(pool.NewRows([]string{"id", "barcode", "name"}).
			AddRow("NEW", (*string)(nil), "Bread"))

	repo := newProductRepositoryWithDB(pool)
	product, err := repo.Resolve(context.Background(), tx, domain.ProductLookup{Name: "Bread"}, "NEW")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ID != "NEW" || product.Barcode != nil {
		t.Fatalf("unexpected product: %+v", product)
	}

	assertExpectations(t, pool)
}

func TestProductRepositoryResolveRequiresIdentity(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	repo := newProductRepositoryWithDB(pool)
	_, err := repo.Resolve(context.Background(), tx, domain.ProductLookup{}, "NEW")
	if !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestProductRepositorySearchLatestByNameEscapesPattern(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM product_instances pi").
		WithArgs(`100\% juice%`).
		WillReturnRows(pool.NewRows([]string{"id", "barcode", "name", "unit_price", "quantity", "created_at"}))

	repo := newProductRepositoryWithDB(pool)
	_, err := repo.SearchLatestByName(context.Background(), "100% Juice")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestDebtRepositoryListUnpaidSplitsByDirection(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()

	columns := []string{"id", "session_id", "owed_by", "owed_to", "amount", "deadline", "payed", "created_at"}
	pool.ExpectQuery("FROM debts d").
		WithArgs("ann@example.com", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pool.NewRows(columns).
			AddRow("D1", "S1", "ann@example.com", "bob@example.com", "4.5", nil, nil, now).
			AddRow("D2", "S1", "cid@example.com", "ann@example.com", "2", nil, nil, now))

	repo := newDebtRepositoryWithDB(pool)
	owedBy, owedTo, err := repo.ListUnpaid(context.Background(), domain.DebtFilter{Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(owedBy) != 1 || owedBy[0].ID != "D1" || !owedBy[0].Amount.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("unexpected owedBy: %+v", owedBy)
	}
	if len(owedTo) != 1 || owedTo[0].ID != "D2" {
		t.Fatalf("unexpected owedTo: %+v", owedTo)
	}

	assertExpectations(t, pool)
}

func TestDebtRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM debts d WHERE d.id").
		WithArgs("D404").
		WillReturnRows(pool.NewRows([]string{"id"}))

	repo := newDebtRepositoryWithDB(pool)
	if _, err := repo.GetByID(context.Background(), "D404"); !errors.Is(err, domain.ErrDebtNotFound) {
		t.Fatalf("expected ErrDebtNotFound, got %v", err)
	}
}

func TestUserRepositoryLookupByEmailNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM users").
		WithArgs("ghost@example.com").
		WillReturnRows(pool.NewRows([]string{"email"}))

	repo := newUserRepositoryWithDB(pool)
	if _, err := repo.LookupByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDeviceRepositoryGetByEmailMissingIsNil(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM devices").
		WithArgs("ann@example.com").
		WillReturnRows(pool.NewRows([]string{"email", "registration_token", "updated_at"}))

	repo := newDeviceRepositoryWithDB(pool)
	device, err := repo.GetByEmail(context.Background(), "ann@example.com")
	if err != nil || device != nil {
		t.Fatalf("expected no device, got %+v, %v", device, err)
	}
}

func TestOutboxRepositoryMarkPublished(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("UPDATE outbox_events SET published = true").
		WithArgs("E1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := newOutboxRepositoryWithDB(pool)
	if err := repo.MarkPublished(context.Background(), "E1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, pool)
}

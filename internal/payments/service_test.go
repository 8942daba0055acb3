package payments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/internal/audit"
	"github.com/lamsahq/lamsa-backend/internal/bookings"
	"github.com/lamsahq/lamsa-backend/internal/credits"
	"github.com/lamsahq/lamsa-backend/internal/wallet"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePaymentRepo struct {
	payments map[uuid.UUID]*models.Payment
	created  []*models.Payment
	saved    []*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[uuid.UUID]*models.Payment{}}
}

func (f *fakePaymentRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments[payment.ID] = payment
	f.created = append(f.created, payment)
	return nil
}

func (f *fakePaymentRepo) Save(ctx context.Context, payment *models.Payment) error {
	f.payments[payment.ID] = payment
	f.saved = append(f.saved, payment)
	return nil
}

func (f *fakePaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (f *fakePaymentRepo) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	for _, payment := range f.payments {
		if payment.GatewayPaymentID == gatewayPaymentID {
			return payment, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

func (f *fakePaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payment, error) {
	return nil, nil
}

type fakeBookingRepo struct {
	booking *models.Booking
	marks   []enums.BookingPaymentStatus
}

func (f *fakeBookingRepo) WithTx(tx *gorm.DB) bookings.Repository { return f }

func (f *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	if f.booking == nil || f.booking.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.booking, nil
}

func (f *fakeBookingRepo) MarkPaymentStatus(ctx context.Context, id uuid.UUID, status enums.BookingPaymentStatus) error {
	f.marks = append(f.marks, status)
	return nil
}

type fakeWallet struct {
	debits   []wallet.MutationInput
	credits  []wallet.MutationInput
	debitErr error
}

func (f *fakeWallet) WithTx(tx *gorm.DB) wallet.Service { return f }

func (f *fakeWallet) Debit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	if f.debitErr != nil {
		return nil, f.debitErr
	}
	f.debits = append(f.debits, input)
	return &models.WalletTransaction{ID: uuid.New(), Amount: input.Amount}, nil
}

func (f *fakeWallet) Credit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	f.credits = append(f.credits, input)
	return &models.WalletTransaction{ID: uuid.New(), Amount: input.Amount}, nil
}

func (f *fakeWallet) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return nil, nil
}

func (f *fakeWallet) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	return nil, nil
}

type fakeCredits struct {
	used       decimal.Decimal
	deductions []credits.DeductionInput
}

func (f *fakeCredits) WithTx(tx *gorm.DB) credits.Service { return f }

func (f *fakeCredits) ApplyDeduction(ctx context.Context, input credits.DeductionInput) (*credits.DeductionResult, error) {
	f.deductions = append(f.deductions, input)
	return &credits.DeductionResult{CreditsUsed: f.used}, nil
}

func (f *fakeCredits) Grant(ctx context.Context, input credits.GrantInput) (*models.CreditTransaction, error) {
	return nil, nil
}

func (f *fakeCredits) AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeCredits) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	return nil, nil
}

type fakeReferrals struct {
	released []uuid.UUID
}

func (f *fakeReferrals) ReleaseReward(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) (*models.Referral, error) {
	f.released = append(f.released, bookingID)
	return nil, nil
}

type fakeAudit struct {
	entries []audit.RecordInput
}

func (f *fakeAudit) WithTx(tx *gorm.DB) audit.Service { return f }

func (f *fakeAudit) Record(ctx context.Context, input audit.RecordInput) (*models.AuditLog, error) {
	f.entries = append(f.entries, input)
	return &models.AuditLog{ID: uuid.New()}, nil
}

func (f *fakeAudit) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error) {
	return nil, nil
}

type fakeGateway struct {
	provider      enums.WebhookProvider
	charge        *Charge
	chargeErr     error
	chargeCalls   []CreateChargeParams
	refundCalls   []int64
	refundResult  *Charge
	refundErr     error
	fetchResult   *Charge
}

func (f *fakeGateway) Provider() enums.WebhookProvider { return f.provider }

func (f *fakeGateway) CreateCharge(ctx context.Context, params CreateChargeParams) (*Charge, error) {
	f.chargeCalls = append(f.chargeCalls, params)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return f.charge, nil
}

func (f *fakeGateway) FetchCharge(ctx context.Context, chargeID string) (*Charge, error) {
	return f.fetchResult, nil
}

func (f *fakeGateway) Refund(ctx context.Context, chargeID string, amountMinor int64, reason string) (*Charge, error) {
	f.refundCalls = append(f.refundCalls, amountMinor)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	if f.refundResult != nil {
		return f.refundResult, nil
	}
	return &Charge{ID: chargeID}, nil
}

func (f *fakeGateway) Capture(ctx context.Context, chargeID string, amountMinor int64) (*Charge, error) {
	return nil, nil
}

func (f *fakeGateway) Void(ctx context.Context, chargeID string) (*Charge, error) {
	return nil, nil
}

type fakeNotifier struct {
	changes []StatusChange
}

func (f *fakeNotifier) PaymentStatusChanged(ctx context.Context, change StatusChange) error {
	f.changes = append(f.changes, change)
	return nil
}

type fixture struct {
	svc       Service
	repo      *fakePaymentRepo
	bookings  *fakeBookingRepo
	wallet    *fakeWallet
	credits   *fakeCredits
	referrals *fakeReferrals
	audit     *fakeAudit
	gateway   *fakeGateway
	notifier  *fakeNotifier
	booking   *models.Booking
	userID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userID := uuid.New()
	booking := &models.Booking{
		ID:          uuid.New(),
		UserID:      userID,
		TotalAmount: decimal.NewFromInt(100),
	}
	f := &fixture{
		repo:      newFakePaymentRepo(),
		bookings:  &fakeBookingRepo{booking: booking},
		wallet:    &fakeWallet{},
		credits:   &fakeCredits{used: decimal.Zero},
		referrals: &fakeReferrals{},
		audit:     &fakeAudit{},
		gateway:   &fakeGateway{provider: enums.WebhookProviderMoyasar},
		notifier:  &fakeNotifier{},
		booking:   booking,
		userID:    userID,
	}

	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		Bookings:          f.bookings,
		Wallet:            f.wallet,
		Credits:           f.credits,
		Referrals:         f.referrals,
		Audit:             f.audit,
		Gateways:          GatewayRegistry{enums.PaymentMethodMoyasar: f.gateway},
		TransactionRunner: fakeTxRunner{},
		Notifier:          f.notifier,
		Logger:            logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	f.svc = svc
	return f
}

func TestService_ChargeBookingWalletOnly(t *testing.T) {
	f := newFixture(t)

	payment, err := f.svc.ChargeBooking(context.Background(), ChargeInput{
		BookingID:    f.booking.ID,
		UserID:       f.userID,
		Method:       enums.PaymentMethodWallet,
		TotalAmount:  decimal.NewFromInt(80),
		WalletAmount: decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("ChargeBooking error: %v", err)
	}

	if payment.Status != enums.PaymentStatusPaid {
		t.Fatalf("status = %s, want paid", payment.Status)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(80)) || !payment.WalletAmount.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("amounts = %s/%s, want 80/80", payment.Amount, payment.WalletAmount)
	}
	if len(f.wallet.debits) != 1 || !f.wallet.debits[0].Amount.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("wallet debits = %+v, want one debit of 80", f.wallet.debits)
	}
	if len(f.bookings.marks) != 1 || f.bookings.marks[0] != enums.BookingPaymentStatusPaid {
		t.Fatalf("booking marks = %v, want one paid mark", f.bookings.marks)
	}
	if len(f.referrals.released) != 1 || f.referrals.released[0] != f.booking.ID {
		t.Fatal("referral reward should be released on internal settlement")
	}
	if len(f.gateway.chargeCalls) != 0 {
		t.Fatal("gateway must not be called on a wallet-only charge")
	}
	if len(f.notifier.changes) != 1 || f.notifier.changes[0].NewStatus != enums.PaymentStatusPaid {
		t.Fatalf("notifications = %+v, want one paid change", f.notifier.changes)
	}
}

func TestService_ChargeBookingCreditsReduceWalletLeg(t *testing.T) {
	f := newFixture(t)
	f.credits.used = decimal.NewFromInt(30)

	payment, err := f.svc.ChargeBooking(context.Background(), ChargeInput{
		BookingID:     f.booking.ID,
		UserID:        f.userID,
		Method:        enums.PaymentMethodWallet,
		TotalAmount:   decimal.NewFromInt(100),
		UseCredits:    true,
		CreditsAmount: decimal.NewFromInt(30),
		WalletAmount:  decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("ChargeBooking error: %v", err)
	}

	if !payment.CreditsAmount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("credits amount = %s, want 30", payment.CreditsAmount)
	}
	if !payment.WalletAmount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("wallet amount = %s, want 70", payment.WalletAmount)
	}
	// Amount is the charged total after credits.
	if !payment.Amount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("amount = %s, want 70", payment.Amount)
	}
	if len(f.wallet.debits) != 1 || !f.wallet.debits[0].Amount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("wallet debits = %+v, want one debit of 70", f.wallet.debits)
	}
}

func TestService_ChargeBookingCreditsSpillIntoGatewayLeg(t *testing.T) {
	f := newFixture(t)
	f.credits.used = decimal.NewFromInt(50)
	f.gateway.charge = &Charge{ID: "py_1", Status: enums.PaymentStatusPending}

	payment, err := f.svc.ChargeBooking(context.Background(), ChargeInput{
		BookingID:     f.booking.ID,
		UserID:        f.userID,
		Method:        enums.PaymentMethodMoyasar,
		TotalAmount:   decimal.NewFromInt(100),
		UseCredits:    true,
		CreditsAmount: decimal.NewFromInt(50),
		WalletAmount:  decimal.NewFromInt(40),
		GatewayAmount: decimal.NewFromInt(60),
	})
	if err != nil {
		t.Fatalf("ChargeBooking error: %v", err)
	}

	// Credits cover the wallet leg entirely, the remaining 10 comes off the
	// gateway leg.
	if !payment.WalletAmount.Equal(decimal.Zero) {
		t.Fatalf("wallet amount = %s, want 0", payment.WalletAmount)
	}
	if !payment.GatewayAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("gateway amount = %s, want 50", payment.GatewayAmount)
	}
	if len(f.wallet.debits) != 0 {
		t.Fatal("wallet must not be debited when credits cover its leg")
	}
	if len(f.gateway.chargeCalls) != 1 || f.gateway.chargeCalls[0].AmountMinor != 5000 {
		t.Fatalf("gateway calls = %+v, want one charge of 5000 halalas", f.gateway.chargeCalls)
	}
}

func TestService_ChargeBookingGatewayLegStaysPending(t *testing.T) {
	f := newFixture(t)
	f.gateway.charge = &Charge{ID: "py_123", Status: enums.PaymentStatusPending}

	payment, err := f.svc.ChargeBooking(context.Background(), ChargeInput{
		BookingID:     f.booking.ID,
		UserID:        f.userID,
		Method:        enums.PaymentMethodMoyasar,
		TotalAmount:   decimal.NewFromInt(100),
		WalletAmount:  decimal.NewFromInt(40),
		GatewayAmount: decimal.NewFromInt(60),
	})
	if err != nil {
		t.Fatalf("ChargeBooking error: %v", err)
	}

	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("status = %s, want pending until the webhook lands", payment.Status)
	}
	if payment.GatewayPaymentID != "py_123" {
		t.Fatalf("gateway payment id = %q, want py_123", payment.GatewayPaymentID)
	}
	if len(f.gateway.chargeCalls) != 1 || f.gateway.chargeCalls[0].AmountMinor != 6000 {
		t.Fatalf("gateway charge minor = %+v, want 6000", f.gateway.chargeCalls)
	}
	// Settlement side effects wait for the webhook.
	if len(f.bookings.marks) != 0 || len(f.referrals.released) != 0 {
		t.Fatal("booking must not settle before the gateway confirms")
	}

	var chargeEntry *audit.RecordInput
	for i := range f.audit.entries {
		if f.audit.entries[i].Action == "payment.gateway_charge" {
			chargeEntry = &f.audit.entries[i]
		}
	}
	if chargeEntry == nil {
		t.Fatal("expected an audit entry for the acquired gateway charge")
	}
	if !strings.Contains(string(chargeEntry.Details), "py_123") {
		t.Fatalf("audit details = %s, want the gateway transaction id", chargeEntry.Details)
	}
	if !chargeEntry.Amount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("audit amount = %s, want the gateway leg", chargeEntry.Amount)
	}
}

func TestService_ChargeBookingGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.chargeErr = errors.New("card declined")

	_, err := f.svc.ChargeBooking(context.Background(), ChargeInput{
		BookingID:     f.booking.ID,
		UserID:        f.userID,
		Method:        enums.PaymentMethodMoyasar,
		TotalAmount:   decimal.NewFromInt(100),
		WalletAmount:  decimal.NewFromInt(40),
		GatewayAmount: decimal.NewFromInt(60),
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeGateway {
		t.Fatalf("error = %v, want gateway error", err)
	}

	if len(f.repo.created) != 1 {
		t.Fatalf("expected the attempt row to exist, got %d", len(f.repo.created))
	}
	attempt := f.repo.created[0]
	if attempt.Status != enums.PaymentStatusFailed {
		t.Fatalf("attempt status = %s, want failed", attempt.Status)
	}
	if attempt.FailureReason == nil || *attempt.FailureReason != "card declined" {
		t.Fatal("failure reason should carry the gateway error")
	}
}

func TestService_ChargeBookingInsufficientWalletRollsBack(t *testing.T) {
	f := newFixture(t)
	f.wallet.debitErr = pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low")

	_, err := f.svc.ChargeBooking(context.Background(), ChargeInput{
		BookingID:    f.booking.ID,
		UserID:       f.userID,
		Method:       enums.PaymentMethodWallet,
		TotalAmount:  decimal.NewFromInt(80),
		WalletAmount: decimal.NewFromInt(80),
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("error = %v, want insufficient funds", err)
	}
	if len(f.repo.created) != 0 {
		t.Fatal("no payment row may survive a failed wallet debit")
	}
	if len(f.gateway.chargeCalls) != 0 {
		t.Fatal("gateway must not be called after a failed wallet debit")
	}
	if len(f.bookings.marks) != 0 {
		t.Fatal("booking must stay untouched")
	}
}

func TestService_ChargeBookingValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input ChargeInput
	}{
		{
			name: "split does not sum to total",
			input: ChargeInput{
				BookingID:    f.booking.ID,
				UserID:       f.userID,
				Method:       enums.PaymentMethodWallet,
				TotalAmount:  decimal.NewFromInt(100),
				WalletAmount: decimal.NewFromInt(80),
			},
		},
		{
			name: "gateway amount on wallet method",
			input: ChargeInput{
				BookingID:     f.booking.ID,
				UserID:        f.userID,
				Method:        enums.PaymentMethodWallet,
				TotalAmount:   decimal.NewFromInt(100),
				WalletAmount:  decimal.NewFromInt(40),
				GatewayAmount: decimal.NewFromInt(60),
			},
		},
		{
			name: "zero total",
			input: ChargeInput{
				BookingID: f.booking.ID,
				UserID:    f.userID,
				Method:    enums.PaymentMethodWallet,
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.ChargeBooking(context.Background(), tc.input)
			coded := pkgerrors.As(err)
			if coded == nil || coded.Code() != pkgerrors.CodeValidation {
				t.Fatalf("error = %v, want validation error", err)
			}
		})
	}
}

func TestService_ChargeBookingForeignBooking(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ChargeBooking(context.Background(), ChargeInput{
		BookingID:    f.booking.ID,
		UserID:       uuid.New(),
		Method:       enums.PaymentMethodWallet,
		TotalAmount:  decimal.NewFromInt(80),
		WalletAmount: decimal.NewFromInt(80),
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("error = %v, want forbidden", err)
	}
}

func paidWalletPayment(f *fixture, amount int64) *models.Payment {
	payment := &models.Payment{
		ID:           uuid.New(),
		BookingID:    f.booking.ID,
		UserID:       f.userID,
		Method:       enums.PaymentMethodWallet,
		Currency:     enums.CurrencySAR,
		Amount:       decimal.NewFromInt(amount),
		WalletAmount: decimal.NewFromInt(amount),
		Status:       enums.PaymentStatusPaid,
	}
	f.repo.payments[payment.ID] = payment
	return payment
}

func TestService_RefundWalletPaymentInTwoSteps(t *testing.T) {
	f := newFixture(t)
	payment := paidWalletPayment(f, 100)

	first := decimal.NewFromInt(40)
	refunded, err := f.svc.Refund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    &first,
		Reason:    "partial cancellation",
	})
	if err != nil {
		t.Fatalf("first refund error: %v", err)
	}
	if refunded.Status != enums.PaymentStatusPartialRefund {
		t.Fatalf("status = %s, want partial_refund", refunded.Status)
	}
	if !refunded.RefundAmount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("refund amount = %s, want 40", refunded.RefundAmount)
	}

	second := decimal.NewFromInt(60)
	refunded, err = f.svc.Refund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    &second,
	})
	if err != nil {
		t.Fatalf("second refund error: %v", err)
	}
	if refunded.Status != enums.PaymentStatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Status)
	}

	if len(f.wallet.credits) != 2 {
		t.Fatalf("wallet credits = %d, want 2", len(f.wallet.credits))
	}
	if !f.wallet.credits[0].Amount.Equal(decimal.NewFromInt(40)) || !f.wallet.credits[1].Amount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("wallet credit amounts = %+v", f.wallet.credits)
	}
	if len(f.bookings.marks) != 1 || f.bookings.marks[0] != enums.BookingPaymentStatusRefunded {
		t.Fatalf("booking marks = %v, want one refunded mark", f.bookings.marks)
	}
	if len(f.gateway.refundCalls) != 0 {
		t.Fatal("gateway must not be touched for a wallet refund")
	}
}

func TestService_RefundAllocatesWalletFirst(t *testing.T) {
	f := newFixture(t)
	payment := &models.Payment{
		ID:               uuid.New(),
		BookingID:        f.booking.ID,
		UserID:           f.userID,
		Method:           enums.PaymentMethodMoyasar,
		Currency:         enums.CurrencySAR,
		Amount:           decimal.NewFromInt(100),
		WalletAmount:     decimal.NewFromInt(40),
		GatewayAmount:    decimal.NewFromInt(60),
		Status:           enums.PaymentStatusPaid,
		GatewayPaymentID: "py_123",
	}
	f.repo.payments[payment.ID] = payment

	amount := decimal.NewFromInt(70)
	refunded, err := f.svc.Refund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    &amount,
	})
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}

	// 70 over a 40/60 split: the wallet interval absorbs 40, the gateway 30.
	if len(f.wallet.credits) != 1 || !f.wallet.credits[0].Amount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("wallet credits = %+v, want one credit of 40", f.wallet.credits)
	}
	if len(f.gateway.refundCalls) != 1 || f.gateway.refundCalls[0] != 3000 {
		t.Fatalf("gateway refunds = %v, want one refund of 3000 halalas", f.gateway.refundCalls)
	}
	if refunded.Status != enums.PaymentStatusPartialRefund {
		t.Fatalf("status = %s, want partial_refund", refunded.Status)
	}

	// The remainder hits only the gateway leg.
	rest := decimal.NewFromInt(30)
	refunded, err = f.svc.Refund(context.Background(), RefundInput{
		PaymentID: payment.ID,
		Amount:    &rest,
	})
	if err != nil {
		t.Fatalf("second refund error: %v", err)
	}
	if refunded.Status != enums.PaymentStatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Status)
	}
	if len(f.wallet.credits) != 1 {
		t.Fatal("wallet leg was already exhausted")
	}
	if len(f.gateway.refundCalls) != 2 || f.gateway.refundCalls[1] != 3000 {
		t.Fatalf("gateway refunds = %v, want a second refund of 3000", f.gateway.refundCalls)
	}
}

func TestService_RefundGatewayRejectionLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	payment := &models.Payment{
		ID:               uuid.New(),
		BookingID:        f.booking.ID,
		UserID:           f.userID,
		Method:           enums.PaymentMethodMoyasar,
		Amount:           decimal.NewFromInt(60),
		GatewayAmount:    decimal.NewFromInt(60),
		Status:           enums.PaymentStatusPaid,
		GatewayPaymentID: "py_123",
	}
	f.repo.payments[payment.ID] = payment
	f.gateway.refundErr = errors.New("refund rejected")

	_, err := f.svc.Refund(context.Background(), RefundInput{PaymentID: payment.ID})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeGateway {
		t.Fatalf("error = %v, want gateway error", err)
	}
	if payment.Status != enums.PaymentStatusPaid || !payment.RefundAmount.Equal(decimal.Zero) {
		t.Fatal("payment must be untouched when the provider rejects the refund")
	}
	if len(f.wallet.credits) != 0 {
		t.Fatal("no wallet credit may happen before the gateway accepts")
	}
}

func TestService_RefundRejectsNonRefundableStatus(t *testing.T) {
	f := newFixture(t)
	payment := paidWalletPayment(f, 80)
	payment.Status = enums.PaymentStatusPending

	_, err := f.svc.Refund(context.Background(), RefundInput{PaymentID: payment.ID})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
}

func TestService_RefundRejectsOverRefund(t *testing.T) {
	f := newFixture(t)
	payment := paidWalletPayment(f, 80)
	payment.RefundAmount = decimal.NewFromInt(50)
	payment.Status = enums.PaymentStatusPartialRefund

	amount := decimal.NewFromInt(40)
	_, err := f.svc.Refund(context.Background(), RefundInput{PaymentID: payment.ID, Amount: &amount})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestService_RefundDefaultsToRemaining(t *testing.T) {
	f := newFixture(t)
	payment := paidWalletPayment(f, 80)
	payment.RefundAmount = decimal.NewFromInt(30)
	payment.Status = enums.PaymentStatusPartialRefund

	refunded, err := f.svc.Refund(context.Background(), RefundInput{PaymentID: payment.ID})
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if refunded.Status != enums.PaymentStatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Status)
	}
	if len(f.wallet.credits) != 1 || !f.wallet.credits[0].Amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("wallet credits = %+v, want one credit of 50", f.wallet.credits)
	}
}

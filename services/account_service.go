package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kendall-kelly/service-crm-api/errs"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/policy"
	"github.com/kendall-kelly/service-crm-api/utils"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// RegisterInput holds a self-service registration
type RegisterInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// StaffInput holds an administratively created staff account
type StaffInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ContactInput holds the contact fields of a profile update
type ContactInput struct {
	Phone     string
	Telegram  string
	City      string
	Street    string
	House     string
	Structure string
	Building  string
	Apartment string
}

// ProfileInput replaces the editable profile of an account
type ProfileInput struct {
	FirstName string
	LastName  string
	Contact   ContactInput
	IsActive  *bool // staff only; nil leaves the flag unchanged
}

// AccountFilter narrows the account directory
type AccountFilter struct {
	Roles []models.Role
	Email string // substring, case-insensitive
	Phone string // substring
}

// ParseAccountFilter reads role (repeatable), email and phone from query values
func ParseAccountFilter(values url.Values) (AccountFilter, error) {
	var filter AccountFilter
	for _, raw := range values["role"] {
		if raw == "" {
			continue
		}
		role, err := models.ParseRole(raw)
		if err != nil {
			return AccountFilter{}, errs.NewValidationError("role", err.Error())
		}
		filter.Roles = append(filter.Roles, role)
	}
	filter.Email = strings.TrimSpace(values.Get("email"))
	filter.Phone = strings.TrimSpace(values.Get("phone"))
	return filter, nil
}

// AccountService manages registration, profiles and chat subscriptions
type AccountService struct {
	db       *gorm.DB
	hasher   PasswordHasher
	mailer   Mailer
	notifier Notifier
	log      *slog.Logger
}

// NewAccountService creates an account service
func NewAccountService(db *gorm.DB, hasher PasswordHasher, mailer Mailer, notifier Notifier, log *slog.Logger) *AccountService {
	if notifier == nil {
		notifier = DisabledNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	if mailer == nil {
		mailer = NewLogMailer(log, "")
	}
	return &AccountService{db: db, hasher: hasher, mailer: mailer, notifier: notifier, log: log}
}

// Register creates an unverified customer account and mails the verification link
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.Account, error) {
	if input.Password != input.PasswordConfirm {
		return nil, errs.NewValidationError("password_confirm", "passwords do not match")
	}

	account, err := s.create(ctx, input.Email, input.Password, input.FirstName, input.LastName, models.RoleCustomer)
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerificationEmail(account.Email, account.VerificationToken); err != nil {
			s.log.Warn("verification email not sent", "account_id", account.ID, "error", err)
		}
	}
	return account, nil
}

// CreateStaff creates an active, verified staff account
func (s *AccountService) CreateStaff(ctx context.Context, input StaffInput) (*models.Account, error) {
	return s.create(ctx, input.Email, input.Password, input.FirstName, input.LastName, models.RoleStaff)
}

func (s *AccountService) create(ctx context.Context, email, password, firstName, lastName string, role models.Role) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, errs.NewValidationError("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, errs.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if err := checkNames(firstName, lastName, false); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, errs.Conflict("email is already registered")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := models.Account{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Role:              role,
		IsActive:          true,
		IsVerified:        role == models.RoleStaff,
		VerificationToken: uuid.NewString(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.Conflict("email is already registered")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Info("account created", "account_id", account.ID, "role", account.Role)
	return &account, nil
}

// Authenticate returns the active account matching email and password
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", errs.ErrAuthenticationRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.hasher.Verify(password, account.PasswordHash); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", errs.ErrAuthenticationRequired)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account is inactive", errs.ErrAuthenticationRequired)
	}
	return &account, nil
}

// Verify marks the account owning token as verified
func (s *AccountService) Verify(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, errs.NewObjectNotFoundError("verification token", token)
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("verification_token = ?", token).First(&account).Error; err != nil {
		return nil, notFound(err, "verification token", token)
	}
	if account.IsVerified {
		return &account, nil
	}

	if err := s.db.WithContext(ctx).Model(&account).Update("is_verified", true).Error; err != nil {
		return nil, fmt.Errorf("failed to verify account: %w", err)
	}
	s.log.Info("account verified", "account_id", account.ID)
	return &account, nil
}

// FindActive loads an account by id for request authentication.
// Missing or inactive accounts yield ErrAuthenticationRequired.
func (s *AccountService) FindActive(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Preload("Contact").First(&account, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: unknown account", errs.ErrAuthenticationRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account is inactive", errs.ErrAuthenticationRequired)
	}
	return &account, nil
}

// Get returns an account with its contact if caller may read it
func (s *AccountService) Get(ctx context.Context, caller *models.Account, id uint) (*models.Account, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionRead, policy.AccountTarget(id)).Err(); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// UpdateProfile replaces names and contact details. The contact is created
// when the account has none. Every field is validated before anything is written.
func (s *AccountService) UpdateProfile(ctx context.Context, caller *models.Account, id uint, input ProfileInput) (*models.Account, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionUpdate, policy.AccountTarget(id)).Err(); err != nil {
		return nil, err
	}
	if err := validateProfile(input); err != nil {
		return nil, err
	}
	if input.IsActive != nil {
		if !caller.IsStaff() {
			return nil, errs.Forbidden("only staff can change is_active")
		}
		if !*input.IsActive && caller.ID == id {
			return nil, errs.NewValidationError("is_active", "staff cannot deactivate their own account")
		}
	}

	account, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var telegram *string
	if handle := strings.TrimSpace(input.Contact.Telegram); handle != "" {
		telegram = &handle
	}
	contactFields := map[string]any{
		"phone":     strings.TrimSpace(input.Contact.Phone),
		"telegram":  telegram,
		"city":      strings.TrimSpace(input.Contact.City),
		"street":    strings.TrimSpace(input.Contact.Street),
		"house":     strings.TrimSpace(input.Contact.House),
		"structure": strings.TrimSpace(input.Contact.Structure),
		"building":  strings.TrimSpace(input.Contact.Building),
		"apartment": strings.TrimSpace(input.Contact.Apartment),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accountFields := map[string]any{
			"first_name": strings.TrimSpace(input.FirstName),
			"last_name":  strings.TrimSpace(input.LastName),
		}
		if input.IsActive != nil {
			accountFields["is_active"] = *input.IsActive
		}
		err := tx.Model(&models.Account{ID: account.ID}).Updates(accountFields).Error
		if err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}

		contact, err := ensureContact(tx, account.ID)
		if err != nil {
			return err
		}
		if err := tx.Model(contact).Updates(contactFields).Error; err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.load(ctx, id)
}

func ensureContact(tx *gorm.DB, accountID uint) (*models.Contact, error) {
	var contact models.Contact
	if err := tx.Where(models.Contact{AccountID: accountID}).FirstOrCreate(&contact).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure contact: %w", err)
	}
	return &contact, nil
}

// List returns a page of the account directory. Staff only.
func (s *AccountService) List(ctx context.Context, caller *models.Account, filter AccountFilter, page utils.Pagination) ([]models.Account, int64, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionManage, policy.AccountTarget(0)).Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.accountQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	accounts := make([]models.Account, 0, page.PageSize)
	err := s.accountQuery(ctx, filter).
		Preload("Contact").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, total, nil
}

func (s *AccountService) accountQuery(ctx context.Context, filter AccountFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Account{})
	if len(filter.Roles) > 0 {
		query = query.Where("accounts.role IN ?", filter.Roles)
	}
	if filter.Email != "" {
		query = query.Where("LOWER(accounts.email) LIKE ?", "%"+strings.ToLower(filter.Email)+"%")
	}
	if filter.Phone != "" {
		query = query.Joins("JOIN contacts ON contacts.account_id = accounts.id").
			Where("contacts.phone LIKE ?", "%"+filter.Phone+"%")
	}
	return query.Order("accounts.id ASC")
}

// Subscribe opts caller into chat notifications. The chat session is
// resolved from the contact's handle; until the customer has messaged the bot
// ErrSubscriptionPending is returned and nothing is stored.
func (s *AccountService) Subscribe(ctx context.Context, caller *models.Account) (*models.Account, error) {
	if caller == nil {
		return nil, errs.ErrAuthenticationRequired
	}

	account, err := s.load(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if account.IsSub {
		return account, nil
	}
	if account.Contact == nil || account.Contact.Telegram == nil || *account.Contact.Telegram == "" {
		return nil, errs.NewValidationError("telegram", "add a telegram handle to your contact details first")
	}

	session, err := s.notifier.ResolveChatSession(ctx, *account.Contact.Telegram)
	if err != nil {
		s.log.Info("chat session not resolved", "account_id", account.ID, "error", err)
		return nil, fmt.Errorf("%w: message the bot and try again", errs.ErrSubscriptionPending)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(account.Contact).Update("chat_session_id", session).Error; err != nil {
			return fmt.Errorf("failed to store chat session: %w", err)
		}
		if err := tx.Model(&models.Account{ID: account.ID}).Update("is_sub", true).Error; err != nil {
			return fmt.Errorf("failed to subscribe account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account subscribed to notifications", "account_id", account.ID)
	return s.load(ctx, account.ID)
}

// Unsubscribe opts caller out of chat notifications. The chat session is kept.
func (s *AccountService) Unsubscribe(ctx context.Context, caller *models.Account) (*models.Account, error) {
	if caller == nil {
		return nil, errs.ErrAuthenticationRequired
	}
	if err := s.db.WithContext(ctx).Model(&models.Account{ID: caller.ID}).Update("is_sub", false).Error; err != nil {
		return nil, fmt.Errorf("failed to unsubscribe account: %w", err)
	}
	return s.load(ctx, caller.ID)
}

func (s *AccountService) load(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Preload("Contact").First(&account, id).Error; err != nil {
		return nil, notFound(err, "account", id)
	}
	return &account, nil
}

func checkNames(firstName, lastName string, required bool) error {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if required && firstName == "" {
		return errs.NewValidationError("first_name", "is required")
	}
	if required && lastName == "" {
		return errs.NewValidationError("last_name", "is required")
	}
	if utf8.RuneCountInString(firstName) > 20 {
		return errs.NewValidationError("first_name", "must be at most 20 characters")
	}
	if utf8.RuneCountInString(lastName) > 25 {
		return errs.NewValidationError("last_name", "must be at most 25 characters")
	}
	return nil
}

func validateProfile(input ProfileInput) error {
	if err := checkNames(input.FirstName, input.LastName, true); err != nil {
		return err
	}

	c := input.Contact
	phone := strings.TrimSpace(c.Phone)
	if phone == "" {
		return errs.NewValidationError("phone", "is required")
	}
	if !utils.PhonePattern.MatchString(phone) {
		return errs.NewValidationError("phone", "must be entered in the format +999999999, 9 to 15 digits")
	}
	if handle := strings.TrimSpace(c.Telegram); handle != "" && !utils.TelegramPattern.MatchString(handle) {
		return errs.NewValidationError("telegram", "must be an @ handle of at least 5 characters")
	}

	fields := []struct {
		name     string
		value    string
		max      int
		required bool
	}{
		{"city", c.City, 50, true},
		{"street", c.Street, 100, false},
		{"house", c.House, 15, true},
		{"structure", c.Structure, 15, false},
		{"building", c.Building, 15, false},
		{"apartment", c.Apartment, 15, false},
	}
	for _, f := range fields {
		value := strings.TrimSpace(f.value)
		if f.required && value == "" {
			return errs.NewValidationError(f.name, "is required")
		}
		if utf8.RuneCountInString(value) > f.max {
			return errs.NewValidationError(f.name, fmt.Sprintf("must be at most %d characters", f.max))
		}
	}
	return nil
}

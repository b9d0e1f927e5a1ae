package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fanhaven/purchasegate/src/verifybot/components/entitlement"
	"github.com/fanhaven/purchasegate/src/verifybot/components/storefront"
	"github.com/fanhaven/purchasegate/src/verifybot/data"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Status is the final classification of one verification run.
type Status int

const (
	StatusVerified Status = iota
	StatusUnverified
	StatusConfigurationError
	StatusSystemError
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusUnverified:
		return "unverified"
	case StatusConfigurationError:
		return "configuration_error"
	default:
		return "system_error"
	}
}

// StatusNames lists every status string, for counter displays.
func StatusNames() []string {
	return []string{
		StatusVerified.String(),
		StatusUnverified.String(),
		StatusConfigurationError.String(),
		StatusSystemError.String(),
	}
}

// Request is one inbound verification trigger.
type Request struct {
	UserID             string
	RequestingIdentity string
	Email              string
	Platform           string
}

// Grant is one entitlement in an outcome, with its display name resolved.
type Grant struct {
	RoleID    string
	RoleName  string
	ProductID string
}

// Outcome is the final result of one verification run. It is created fresh
// per request and discarded after reporting.
type Outcome struct {
	RunID            string
	Platform         string
	Status           Status
	Granted          []Grant
	Denied           []Grant
	BaseGrantApplied bool
	BaseGrantWarning bool
}

type Config struct {
	Registry   *storefront.Registry
	Mapper     *entitlement.Mapper
	Granter    entitlement.Granter
	BaseRoleID string
	Redis      *redis.Client
}

// Orchestrator drives a verification request end to end: resolve the
// storefront, verify the purchase, reconcile identities, grant roles and
// assemble the outcome. It holds no per-request state.
type Orchestrator struct {
	config Config
}

func NewOrchestrator(config Config) *Orchestrator {
	return &Orchestrator{config: config}
}

// Run executes one verification. It never returns an error: expected
// negatives become Unverified, user input errors ConfigurationError, and
// anything unexpected is logged in full and absorbed into SystemError.
func (o *Orchestrator) Run(ctx context.Context, req Request) (outcome Outcome) {
	outcome = Outcome{RunID: uuid.NewString(), Platform: req.Platform}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("reconcile: run %s panicked: %v", outcome.RunID, r)
			outcome.Status = StatusSystemError
			outcome.Granted = nil
		}
		o.publish(outcome)
	}()

	verifier, err := o.config.Registry.Resolve(req.Platform)
	if err != nil {
		log.Printf("reconcile: run %s: %v", outcome.RunID, err)
		outcome.Status = StatusConfigurationError
		return outcome
	}

	log.Printf("reconcile: run %s: verifying against %s for %s", outcome.RunID, verifier.Platform(), req.UserID)

	result, err := verifier.Verify(ctx, req.Email)
	if err != nil {
		var apiErr *storefront.APIError
		if errors.As(err, &apiErr) && apiErr.Auth() {
			log.Printf("reconcile: run %s: %s rejected our credentials, check the configured API key: %v",
				outcome.RunID, verifier.Platform(), err)
		} else {
			log.Printf("reconcile: run %s: verification failed: %v", outcome.RunID, err)
		}
		outcome.Status = StatusSystemError
		return outcome
	}

	if !result.Verified {
		outcome.Status = StatusUnverified
		return outcome
	}
	outcome.Status = StatusVerified

	candidates, denied := o.reconcile(req.Platform, result.Sales, req.RequestingIdentity)
	outcome.Denied = denied

	// The caller may already be gone; a run nobody is waiting on must not
	// hand out roles.
	if err := ctx.Err(); err != nil {
		log.Printf("reconcile: run %s abandoned before granting: %v", outcome.RunID, err)
		outcome.Status = StatusSystemError
		return outcome
	}

	for _, candidate := range candidates {
		if err := o.config.Granter.Grant(ctx, req.UserID, candidate.RoleID); err != nil {
			log.Printf("reconcile: run %s: %v", outcome.RunID, err)
			outcome.Status = StatusSystemError
			return outcome
		}
		outcome.Granted = append(outcome.Granted, candidate)
	}

	if len(outcome.Granted) > 0 {
		o.grantBase(ctx, req.UserID, &outcome)
	}

	return outcome
}

// reconcile maps every sale to its role and classifies the buyer identity.
// Unmapped products are skipped. Both lists are deduplicated by role in
// insertion order, and a role granted through any sale is never also denied.
func (o *Orchestrator) reconcile(platform string, sales []storefront.SaleRecord, requesting string) (granted, denied []Grant) {
	seenGrant := make(map[string]bool)
	seenDeny := make(map[string]bool)

	for _, sale := range sales {
		roleID, ok := o.config.Mapper.Map(platform, sale.ProductID)
		if !ok {
			continue
		}

		grant := Grant{
			RoleID:    roleID,
			RoleName:  o.config.Granter.RoleName(roleID),
			ProductID: sale.ProductID,
		}

		if Classify(sale.ClaimedIdentity, requesting).Grants() {
			if !seenGrant[roleID] {
				seenGrant[roleID] = true
				granted = append(granted, grant)
			}
		} else if !seenDeny[roleID] {
			seenDeny[roleID] = true
			denied = append(denied, grant)
		}
	}

	kept := denied[:0]
	for _, d := range denied {
		if !seenGrant[d.RoleID] {
			kept = append(kept, d)
		}
	}

	return granted, kept
}

// grantBase applies the "verified member" role once product roles succeeded.
// A failure here never rolls back those grants; it is reported as a
// configuration warning instead.
func (o *Orchestrator) grantBase(ctx context.Context, userID string, outcome *Outcome) {
	if o.config.BaseRoleID == "" {
		log.Printf("reconcile: run %s: verified_role_id is not configured", outcome.RunID)
		outcome.BaseGrantWarning = true
		return
	}

	if err := o.config.Granter.Grant(ctx, userID, o.config.BaseRoleID); err != nil {
		log.Printf("reconcile: run %s: base role grant failed: %v", outcome.RunID, err)
		outcome.BaseGrantWarning = true
		return
	}

	outcome.BaseGrantApplied = true
	outcome.Granted = append(outcome.Granted, Grant{
		RoleID:   o.config.BaseRoleID,
		RoleName: o.config.Granter.RoleName(o.config.BaseRoleID),
	})
}

// publish records the outcome for operators: a counter bump plus one event on
// the outcome stream. Uses its own context so an abandoned caller doesn't
// stop accounting.
func (o *Orchestrator) publish(outcome Outcome) {
	if o.config.Redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := data.BumpOutcome(ctx, o.config.Redis, outcome.Status.String()); err != nil {
		log.Printf("reconcile: run %s: bump counter: %v", outcome.RunID, err)
	}

	err := data.PublishOutcome(ctx, o.config.Redis, map[string]interface{}{
		"run":      outcome.RunID,
		"platform": outcome.Platform,
		"status":   outcome.Status.String(),
		"granted":  len(outcome.Granted),
		"denied":   len(outcome.Denied),
		"base":     outcome.BaseGrantApplied,
		"time":     time.Now().Unix(),
	})
	if err != nil {
		log.Printf("reconcile: run %s: publish outcome: %v", outcome.RunID, err)
	}
}

package share

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/internal/telemetry"
	"github.com/marmos91/reportshare/pkg/apiclient"
	apierrs "github.com/marmos91/reportshare/pkg/errors"
)

// Client is the subset of the API client the service needs.
// *apiclient.Client implements it.
type Client interface {
	ShareReport(ctx context.Context, req *apiclient.ShareReportRequest) (*apiclient.ShareGrant, error)
	ShareAllReports(ctx context.Context, req *apiclient.ShareAllRequest) (*apiclient.ShareGrant, error)
	RevokeShare(ctx context.Context, req *apiclient.RevokeRequest) error
	ListSharedBy(ctx context.Context, userID string) ([]apiclient.ShareGrant, error)
	ListSharedWith(ctx context.Context, userID string) ([]apiclient.ShareGrant, error)
}

// ShareReportInput describes a single-report grant.
type ShareReportInput struct {
	OwnerID string `json:"ownerId" validate:"required"`

	// SharedWith is a user id or an email address. It is sent as typed and
	// resolved by the backend.
	SharedWith string `json:"sharedWith" validate:"required"`

	ReportID string `json:"reportId" validate:"required"`

	// PermissionType defaults to "view".
	PermissionType string `json:"permissionType" validate:"omitempty,oneof=view"`
}

// ShareAllInput describes a bulk grant over the owner's current reports.
type ShareAllInput struct {
	OwnerID        string `json:"ownerId" validate:"required"`
	SharedWith     string `json:"sharedWith" validate:"required"`
	PermissionType string `json:"permissionType" validate:"omitempty,oneof=view"`
}

// RevokeInput identifies the grant to revoke. An empty ReportID targets the
// bulk grant.
type RevokeInput struct {
	OwnerID   string    `json:"ownerId" validate:"required"`
	ReportID  string    `json:"reportId"`
	Recipient Recipient `json:"recipient"`
}

// Service is the share service.
type Service struct {
	client   Client
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a share service backed by client.
func NewService(client Client) *Service {
	return &Service{
		client:   client,
		validate: newValidator(),
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ShareReport grants the recipient view access to one report.
func (s *Service) ShareReport(ctx context.Context, in ShareReportInput) (*Grant, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.SharedWith = strings.TrimSpace(in.SharedWith)
	in.ReportID = strings.TrimSpace(in.ReportID)
	if in.PermissionType == "" {
		in.PermissionType = apiclient.PermissionView
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartShareSpan(ctx, "report",
		telemetry.OwnerID(in.OwnerID), telemetry.ReportID(in.ReportID), telemetry.Recipient(in.SharedWith))
	defer span.End()
	ctx = telemetry.WithLogContext(ctx, "share.report")

	grant, err := s.client.ShareReport(ctx, &apiclient.ShareReportRequest{
		OwnerID:        in.OwnerID,
		SharedWith:     in.SharedWith,
		ReportID:       in.ReportID,
		PermissionType: in.PermissionType,
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Share failed",
			logger.OwnerID(in.OwnerID), logger.ReportID(in.ReportID), logger.Recipient(in.SharedWith), logger.Err(err))
		return nil, err
	}

	reportID := in.ReportID
	grant = s.complete(grant, in.OwnerID, in.SharedWith, &reportID, in.PermissionType)
	logger.InfoCtx(ctx, "Report shared",
		logger.OwnerID(in.OwnerID), logger.ReportID(in.ReportID), logger.Recipient(in.SharedWith))
	return grant, nil
}

// ShareAllReports grants the recipient access to every report the owner has
// right now. Reports uploaded later are not covered.
func (s *Service) ShareAllReports(ctx context.Context, in ShareAllInput) (*Grant, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.SharedWith = strings.TrimSpace(in.SharedWith)
	if in.PermissionType == "" {
		in.PermissionType = apiclient.PermissionView
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartShareSpan(ctx, "all",
		telemetry.OwnerID(in.OwnerID), telemetry.Recipient(in.SharedWith), telemetry.Bulk(true))
	defer span.End()
	ctx = telemetry.WithLogContext(ctx, "share.all")

	grant, err := s.client.ShareAllReports(ctx, &apiclient.ShareAllRequest{
		OwnerID:        in.OwnerID,
		SharedWith:     in.SharedWith,
		PermissionType: in.PermissionType,
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Share all failed",
			logger.OwnerID(in.OwnerID), logger.Recipient(in.SharedWith), logger.Err(err))
		return nil, err
	}

	grant = s.complete(grant, in.OwnerID, in.SharedWith, nil, in.PermissionType)
	logger.InfoCtx(ctx, "All reports shared",
		logger.OwnerID(in.OwnerID), logger.Recipient(in.SharedWith), logger.KeyCount, len(grant.ReportIDs))
	return grant, nil
}

// RevokeShare revokes the matching grant. Revoking a grant that is already
// revoked or never existed fails with NotFoundError and changes nothing.
func (s *Service) RevokeShare(ctx context.Context, in RevokeInput) error {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.ReportID = strings.TrimSpace(in.ReportID)
	in.Recipient.ID = strings.TrimSpace(in.Recipient.ID)
	in.Recipient.Email = strings.TrimSpace(in.Recipient.Email)
	if err := s.check(in); err != nil {
		return err
	}
	if err := in.Recipient.Validate(); err != nil {
		return err
	}

	ctx, span := telemetry.StartShareSpan(ctx, "revoke",
		telemetry.OwnerID(in.OwnerID), telemetry.ReportID(in.ReportID),
		telemetry.Recipient(in.Recipient.String()), telemetry.Bulk(in.ReportID == ""))
	defer span.End()
	ctx = telemetry.WithLogContext(ctx, "share.revoke")

	req := &apiclient.RevokeRequest{
		OwnerID:         in.OwnerID,
		SharedWithID:    in.Recipient.ID,
		SharedWithEmail: in.Recipient.Email,
	}
	if in.ReportID != "" {
		req.ReportID = &in.ReportID
	}

	if err := s.client.RevokeShare(ctx, req); err != nil {
		telemetry.RecordError(ctx, err)
		level := logger.WarnCtx
		if apierrs.IsNotFound(err) {
			level = logger.InfoCtx
		}
		level(ctx, "Revoke failed",
			logger.OwnerID(in.OwnerID), logger.ReportID(in.ReportID), logger.Recipient(in.Recipient.String()), logger.Err(err))
		return err
	}

	logger.InfoCtx(ctx, "Share revoked",
		logger.OwnerID(in.OwnerID), logger.ReportID(in.ReportID), logger.Recipient(in.Recipient.String()))
	return nil
}

// ListSharedByMe returns the grants owned by userID, one per tuple, newest
// first.
func (s *Service) ListSharedByMe(ctx context.Context, userID string, opts ...ListOption) ([]Grant, error) {
	return s.list(ctx, "shared-by", userID, s.client.ListSharedBy, opts)
}

// ListSharedWithMe returns the grants whose recipient is userID, one per
// tuple, newest first.
func (s *Service) ListSharedWithMe(ctx context.Context, userID string, opts ...ListOption) ([]Grant, error) {
	return s.list(ctx, "shared-with", userID, s.client.ListSharedWith, opts)
}

func (s *Service) list(
	ctx context.Context,
	projection, userID string,
	fetch func(context.Context, string) ([]apiclient.ShareGrant, error),
	opts []ListOption,
) ([]Grant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierrs.NewValidationError("userId is required")
	}

	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := telemetry.StartShareSpan(ctx, "list."+projection, telemetry.UserID(userID))
	defer span.End()
	ctx = telemetry.WithLogContext(ctx, "share.list")

	grants, err := fetch(ctx, userID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "List failed", logger.UserID(userID), "projection", projection, logger.Err(err))
		return nil, err
	}

	out := Dedupe(grants, o.includeRevoked)
	span.SetAttributes(telemetry.GrantCount(len(out)))
	logger.DebugCtx(ctx, "Grants listed",
		logger.UserID(userID), "projection", projection, logger.KeyCount, len(out), "fetched", len(grants))
	return out, nil
}

// complete fills in fields an ack-only response leaves out so callers always
// get a usable grant.
func (s *Service) complete(g *Grant, ownerID, sharedWith string, reportID *string, permission string) *Grant {
	if g == nil {
		g = &Grant{}
	}
	if g.OwnerID == "" {
		g.OwnerID = ownerID
		g.ReportID = reportID
	}
	if g.SharedWithID == "" && g.SharedWithEmail == "" {
		if r, err := ParseRecipient(sharedWith); err == nil {
			g.SharedWithID, g.SharedWithEmail = r.ID, r.Email
		} else {
			g.SharedWithID = sharedWith
		}
	}
	if g.PermissionType == "" {
		g.PermissionType = permission
	}
	if g.SharedAt.IsZero() {
		g.SharedAt = s.now().UTC()
	}
	return g
}

// check validates an input struct and maps failures to ValidationError.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrs.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
		}
	}
	return apierrs.NewValidationError(strings.Join(msgs, "; "))
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/audit"
	"github.com/medibrief/api/internal/auth"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

// AuthHandler handles every PUBLIC endpoint: a caller reaches these before
// they hold a token, so none of them run behind AuthMiddleware.
type AuthHandler struct {
	db        *db.DB
	clinics   repository.ClinicRepository
	users     repository.UserRepository
	patients  repository.PatientRepository
	audits    repository.AuditRepository
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthHandler(
	database *db.DB,
	clinics repository.ClinicRepository,
	users repository.UserRepository,
	patients repository.PatientRepository,
	audits repository.AuditRepository,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		db: database, clinics: clinics, users: users, patients: patients, audits: audits,
		jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger,
	}
}

type registerClinicRequest struct {
	ClinicName       string `json:"clinicName" binding:"required,max=100"`
	ClinicEmail      string `json:"clinicEmail" binding:"required,email"`
	SubscriptionPlan string `json:"subscriptionPlan" binding:"required"`
	AdminName        string `json:"adminName" binding:"required,max=100"`
	AdminEmail       string `json:"adminEmail" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
}

// RegisterClinic handles POST /auth/register-clinic: Clinic + ADMIN user +
// audit record, atomically (§4.1).
func (h *AuthHandler) RegisterClinic(c *gin.Context) {
	var req registerClinicRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()

	if existing, err := h.lookupClinicByEmail(ctx, req.ClinicEmail); err != nil {
		fail(c, apperr.Internal("registration failed"))
		return
	} else if existing != nil {
		fail(c, apperr.Conflict("clinic email already registered"))
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		fail(c, apperr.Internal("registration failed"))
		return
	}

	var clinic *models.Clinic
	var admin *models.User

	err = h.db.WithTx(ctx, func(tx pgxTx) error {
		var err error
		clinic, err = h.clinics.Create(ctx, tx, req.ClinicName, req.ClinicEmail, req.SubscriptionPlan)
		if err != nil {
			return err
		}
		admin, err = h.users.Create(ctx, tx, clinic.ID, req.AdminName, req.AdminEmail, passwordHash, models.RoleAdmin)
		if err != nil {
			return err
		}
		return audit.Write(ctx, tx, h.audits, admin.ID, "CLINIC_REGISTER", "clinic", clinic.ID)
	})
	if err != nil {
		h.logger.Error("register clinic", zap.Error(err))
		fail(c, apperr.Conflict("clinic or admin email already registered"))
		return
	}

	token, err := auth.GenerateToken(admin.ID, clinic.ID, admin.Role, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		fail(c, apperr.Internal("registration failed"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "clinic": clinic, "user": admin})
}

type staffLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

var errInvalidCredentials = apperr.Unauthenticated("invalid email or password")

// Login handles POST /auth/login. Unknown email and wrong password return
// the exact same error after the same amount of bcrypt work, so neither
// timing nor wording reveals which occurred (§4.1).
func (h *AuthHandler) Login(c *gin.Context) {
	var req staffLoginRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	var user *models.User

	err := h.db.WithTx(ctx, func(tx pgxTx) error {
		var err error
		user, err = h.users.GetByEmail(ctx, tx, req.Email)
		return err
	})
	if err != nil {
		h.logger.Error("staff login lookup", zap.Error(err))
		fail(c, apperr.Internal("login failed"))
		return
	}
	if user == nil {
		// Spend the bcrypt work a real comparison would, so an unknown email
		// is not faster to reject than a wrong password.
		_, _ = auth.HashPassword(req.Password)
		fail(c, errInvalidCredentials)
		return
	}
	if !auth.ComparePassword(user.PasswordHash, req.Password) {
		fail(c, errInvalidCredentials)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.ClinicID, user.Role, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		fail(c, apperr.Internal("login failed"))
		return
	}

	_ = h.db.WithTenantTx(ctx, user.ClinicID, func(tx pgxTx) error {
		return audit.Write(ctx, tx, h.audits, user.ID, "STAFF_LOGIN", "user", user.ID)
	})

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type patientSetupRequest struct {
	InviteToken string `json:"inviteToken" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
}

// PatientSetup handles POST /auth/patient-setup: consumes an invite token
// to grant portal credentials (§4.1).
func (h *AuthHandler) PatientSetup(c *gin.Context) {
	var req patientSetupRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	var patient *models.Patient

	err := h.db.WithTx(ctx, func(tx pgxTx) error {
		var err error
		patient, err = h.patients.GetByInviteToken(ctx, tx, req.InviteToken)
		return err
	})
	if err != nil {
		h.logger.Error("patient setup lookup", zap.Error(err))
		fail(c, apperr.Internal("patient setup failed"))
		return
	}
	if patient == nil {
		fail(c, apperr.NotFound("invite not found"))
		return
	}
	if patient.PasswordHash != nil {
		fail(c, apperr.Conflict("patient already has portal credentials"))
		return
	}
	if patient.InviteExpiresAt == nil || time.Now().After(*patient.InviteExpiresAt) {
		fail(c, apperr.Gone("invite has expired"))
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		fail(c, apperr.Internal("patient setup failed"))
		return
	}

	var updated *models.Patient
	err = h.db.WithTenantTx(ctx, patient.ClinicID, func(tx pgxTx) error {
		var err error
		updated, err = h.patients.SetupCredentials(ctx, tx, patient.ID, req.Email, passwordHash)
		if err != nil {
			return err
		}
		return audit.Write(ctx, tx, h.audits, patient.ID, "PATIENT_SETUP", "patient", patient.ID)
	})
	if err != nil {
		h.logger.Error("patient setup", zap.Error(err))
		fail(c, apperr.Conflict("email already in use"))
		return
	}

	token, err := auth.GenerateToken(updated.ID, updated.ClinicID, models.RolePatient, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		fail(c, apperr.Internal("patient setup failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "patient": updated})
}

type patientLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PatientLogin handles POST /auth/patient-login, mirroring staff Login's
// indistinguishable-failure behavior (§4.1).
func (h *AuthHandler) PatientLogin(c *gin.Context) {
	var req patientLoginRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	var patient *models.Patient

	err := h.db.WithTx(ctx, func(tx pgxTx) error {
		var err error
		patient, err = h.patients.GetByEmail(ctx, tx, req.Email)
		return err
	})
	if err != nil {
		h.logger.Error("patient login lookup", zap.Error(err))
		fail(c, apperr.Internal("login failed"))
		return
	}
	if patient == nil || patient.PasswordHash == nil {
		_, _ = auth.HashPassword(req.Password)
		fail(c, errInvalidCredentials)
		return
	}
	if !auth.ComparePassword(*patient.PasswordHash, req.Password) {
		fail(c, errInvalidCredentials)
		return
	}

	token, err := auth.GenerateToken(patient.ID, patient.ClinicID, models.RolePatient, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		fail(c, apperr.Internal("login failed"))
		return
	}

	_ = h.db.WithTenantTx(ctx, patient.ClinicID, func(tx pgxTx) error {
		return audit.Write(ctx, tx, h.audits, patient.ID, "PATIENT_LOGIN", "patient", patient.ID)
	})

	c.JSON(http.StatusOK, gin.H{"token": token, "patient": patient})
}

func (h *AuthHandler) lookupClinicByEmail(ctx ctxType, email string) (*models.Clinic, error) {
	var clinic *models.Clinic
	err := h.db.WithTx(ctx, func(tx pgxTx) error {
		var err error
		clinic, err = h.clinics.GetByEmail(ctx, tx, email)
		return err
	})
	return clinic, err
}

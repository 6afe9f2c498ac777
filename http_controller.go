package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthRoutes wires the auth pages into the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.ForgotPassword, controller.ForgotPasswordShow).
		SetName("pwd-forgot.get")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).
		SetName("pwd-forgot.post")

	app.Get(controller.Routes.ResetPassword, controller.ResetPasswordShow).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordExecute).
		SetName("pwd-reset.post")

	app.Get(controller.Routes.Verify, controller.VerifyEmailGet).
		SetName("verify-email.get")
	app.Post(controller.Routes.ResendVerification, controller.ResendVerificationPost).
		SetName("verify-resend.post")
}

type AuthControllerRoutes struct {
	Login              string
	Logout             string
	Register           string
	ForgotPassword     string
	ResetPassword      string
	Verify             string
	ResendVerification string
	Profile            string
	Home               string
}

type AuthControllerViews struct {
	Login          string
	Register       string
	ForgotPassword string
	ResetPassword  string
	Verify         string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Session      Session
	Gateway      Gateway
	Store        Store
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerSession(session Session) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Session = session
		return c
	}
}

func WithControllerGateway(gateway Gateway) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Gateway = gateway
		return c
	}
}

func WithControllerStore(store Store) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func WithControllerViews(views *AuthControllerViews) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if views != nil {
			c.Views = views
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:              "/login",
			Logout:             "/logout",
			Register:           "/register",
			ForgotPassword:     "/forgot-password",
			ResetPassword:      "/reset-password",
			Verify:             "/verify-email",
			ResendVerification: "/resend-verification",
			Profile:            "/profile",
			Home:               "/",
		},
		Views: &AuthControllerViews{
			Login:          "login",
			Register:       "register",
			ForgotPassword: "forgot_password",
			ResetPassword:  "reset_password",
			Verify:         "verify_email",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Session == nil {
		panic("Missing Session in auth controller...")
	}

	if c.Gateway == nil {
		panic("Missing Gateway in auth controller...")
	}

	if c.Store == nil {
		panic("Missing Store in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	savedEmail := ""
	rememberMe := false
	if v, ok := a.Store.GetString(ctx.Context(), KeyRememberMe); ok && v == "true" {
		rememberMe = true
		savedEmail, _ = a.Store.GetString(ctx.Context(), KeySavedEmail)
	}

	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors":      nil,
		"record":      nil,
		"saved_email": savedEmail,
		"remember_me": rememberMe,
	})
}

// LoginPayload is the sign-in form payload
type LoginPayload struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	if _, err := a.Session.Login(ctx.Context(), payload.Email, payload.Password, payload.RememberMe); err != nil {
		// Unverified email gets its own treatment: the visitor needs the
		// resend link, not a generic failure.
		if IsEmailNotVerifiedError(err) {
			return ctx.Render(a.Views.Login, router.ViewContext{
				"record":             payload,
				"needs_verification": true,
				"errors":             map[string]string{"authentication": ErrorMessage(err)},
			})
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  ErrorMessage(err),
			"system_message": "Authentication failed",
		}).Render(a.Views.Login, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"authentication": ErrorMessage(err)},
		})
	}

	// A deferred action recorded before login wins over the default
	// landing page and is replayed exactly once.
	if action, ok := ConsumePendingAction(ctx.Context(), a.Store); ok {
		return ctx.Redirect(a.Routes.Profile+"?action="+action, router.StatusSeeOther)
	}

	return ctx.Redirect(a.Routes.Profile, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	if err := a.Session.Logout(ctx.Context()); err != nil {
		a.Logger.Error("logout: %v", err)
	}
	return ctx.Redirect(a.Routes.Home, router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	savedName, _ := a.Store.GetString(ctx.Context(), KeySavedName)
	savedEmail, _ := a.Store.GetString(ctx.Context(), KeySavedRegEmail)

	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegistrationPayload{
			FullName: savedName,
			Email:    savedEmail,
		},
	})
}

// RegistrationPayload is the sign-up form payload
type RegistrationPayload struct {
	FullName        string `form:"full_name" json:"fullName"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	// Keep the name and email around so a failed attempt does not wipe
	// the form.
	if err := a.Store.SetString(ctx.Context(), KeySavedName, payload.FullName); err != nil {
		a.Logger.Warn("saving registration name: %v", err)
	}
	if err := a.Store.SetString(ctx.Context(), KeySavedRegEmail, payload.Email); err != nil {
		a.Logger.Warn("saving registration email: %v", err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	reg := Registration{
		FullName: payload.FullName,
		Email:    payload.Email,
		Password: payload.Password,
	}

	result, err := a.Session.Register(ctx.Context(), reg)
	if err != nil {
		a.Logger.Error("register: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  ErrorMessage(err),
			"system_message": "Registration failed",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{ErrorMessage(err)},
		})
	}

	if err := a.Store.Delete(ctx.Context(), KeySavedName, KeySavedRegEmail); err != nil {
		a.Logger.Warn("clearing saved registration form: %v", err)
	}

	message := "Registration successful. Please sign in."
	if result.EmailSent {
		message = "Registration successful. Check your email to verify your account."
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": message,
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AuthController) ForgotPasswordShow(ctx router.Context) error {
	return ctx.Render(a.Views.ForgotPassword, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// ForgotPasswordPayload holds the reset request email
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ForgotPassword, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ForgotPassword, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	result, err := a.Gateway.ForgotPassword(ctx.Context(), payload.Email)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  ErrorMessage(err),
			"system_message": "Password reset request failed",
		}).Render(a.Views.ForgotPassword, router.ViewContext{
			"record": payload,
			"errors": []string{ErrorMessage(err)},
		})
	}

	message := result.Message
	if message == "" {
		message = "If that address is registered, a reset link is on its way."
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": message,
	}).Render(a.Views.ForgotPassword, router.ViewContext{
		"sent": true,
	})
}

func (a *AuthController) ResetPasswordShow(ctx router.Context) error {
	token := ctx.Query("token")
	if token == "" {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Reset link is missing its token",
		}).Redirect(a.Routes.ForgotPassword, fiber.StatusSeeOther)
	}

	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"errors": nil,
		"token":  token,
	})
}

// ResetPasswordPayload holds the reset token and new password
type ResetPasswordPayload struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPasswordExecute(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResetPassword, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
		})
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ResetPassword, router.ViewContext{
			"token":      payload.Token,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if _, err := a.Gateway.ResetPassword(ctx.Context(), payload.Token, payload.Password); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  ErrorMessage(err),
			"system_message": "Password reset failed",
		}).Render(a.Views.ResetPassword, router.ViewContext{
			"token":  payload.Token,
			"errors": []string{ErrorMessage(err)},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password updated. Sign in with your new password.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// VerifyEmailGet confirms the token carried by the verification link.
func (a *AuthController) VerifyEmailGet(ctx router.Context) error {
	token := ctx.Query("token")
	if token == "" {
		return ctx.Render(a.Views.Verify, router.ViewContext{
			"verified": false,
			"errors":   map[string]string{"token": "Verification link is missing its token"},
		})
	}

	result, err := a.Gateway.VerifyEmail(ctx.Context(), token)
	if err != nil {
		a.Logger.Error("verify email: %v", err)
		return ctx.Render(a.Views.Verify, router.ViewContext{
			"verified":   false,
			"can_resend": true,
			"errors":     map[string]string{"verification": ErrorMessage(err)},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": result.Message,
	}).Render(a.Views.Verify, router.ViewContext{
		"verified": true,
	})
}

// ResendVerificationPayload holds the address to resend the link to
type ResendVerificationPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ResendVerificationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) ResendVerificationPost(ctx router.Context) error {
	payload := new(ResendVerificationPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("resend verification parse payload: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Login, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	result, err := a.Gateway.ResendVerification(ctx.Context(), payload.Email)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  ErrorMessage(err),
			"system_message": "Could not resend the verification email",
		}).Render(a.Views.Login, router.ViewContext{
			"errors": []string{ErrorMessage(err)},
		})
	}

	message := result.Message
	if message == "" {
		message = "Verification email sent. Check your inbox."
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": message,
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field → message map for the views.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}

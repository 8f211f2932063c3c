// Package catalog implements the LowCodeFusion catalog API. It resolves
// integration names to published package versions, serves the package
// archives themselves and proxies parse/generate requests to the stub
// generation workers over NATS.
package catalog

import (
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/strongcodr/lowcodefusion/lcf/config"
	handlers_flows "github.com/strongcodr/lowcodefusion/lcf/handlers/flows"
	"github.com/strongcodr/lowcodefusion/lcf/lcferrors"
	"github.com/strongcodr/lowcodefusion/lcf/pkgstore"
)

type Config struct {
	Debug          bool `json:"debug"`
	DisableLogging bool `json:"disable_logging"`

	Host    string
	DataDir string
	AuthKey string
	Bucket  string

	TLSCert string
	TLSKey  string

	NATSConn *nats.Conn           // Shared NATS connection to the stubgen workers
	Store    pkgstore.ObjectStore // Package archive storage
}

// bucket returns the object store bucket packages are published under.
func (cs *Config) bucket() string {
	if cs.Bucket != "" {
		return cs.Bucket
	}
	return "packages"
}

func (cs *Config) SetupRoutes() *fiber.App {

	var logLevel slog.Level

	if cs.Debug {
		logLevel = slog.LevelDebug
	} else if cs.DisableLogging {
		logLevel = slog.LevelError
	} else {
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	// Create a new logger with the custom handler
	slogger := slog.New(handler)

	// Set it as the default logger
	slog.SetDefault(slogger)

	app := fiber.New(fiber.Config{

		// Disable the startup banner
		DisableStartupMessage: cs.DisableLogging,

		// Override default error handler
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			return cs.ErrorHandler(ctx, err)
		}},
	)

	if !cs.DisableLogging {
		app.Use(logger.New())
	}

	// Add CORS middleware for browser requests
	app.Use(cors.New())

	// Bearer token auth for everything except the health probe
	app.Use(keyauth.New(keyauth.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
		KeyLookup:  "header:Authorization",
		AuthScheme: "Bearer",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(cs.AuthKey)) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return errors.New(lcferrors.ErrorAuthFailure)
		},
	}))

	// Define routes
	app.Get("/health", cs.Health)

	app.Get("/api/v1/integrations/:name", cs.Integration)
	app.Get("/api/v1/integrations/:name/operations", cs.Operations)
	app.Post("/api/v1/generate", cs.Generate)

	app.Get("/packages/:file", cs.Package)

	return app
}

func (cs *Config) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

// Integration resolves an integration name to its latest published package
// version.
func (cs *Config) Integration(ctx *fiber.Ctx) error {

	name, err := url.PathUnescape(ctx.Params("name"))
	if err != nil || name == "" {
		return errors.New(lcferrors.ErrorValidationError)
	}

	key, version, err := pkgstore.LatestPackage(cs.Store, cs.bucket(), name)
	if err != nil {
		if pkgstore.IsNoSuchKeyError(err) {
			return lcferrors.NewErrorf(lcferrors.ErrorIntegrationNotFound, "no package published for %s", name)
		}
		slog.Error("Package lookup failed", "integration", name, "err", err)
		return errors.New(lcferrors.ErrorStorageFailure)
	}

	slog.Debug("Resolved integration", "integration", name, "package", key, "version", version)

	return ctx.JSON(fiber.Map{
		"Result": fiber.Map{
			"Name":          name,
			"LatestVersion": version,
		},
	})
}

// Operations asks a stubgen worker to parse the flow definitions of an
// integration and returns the operation list.
func (cs *Config) Operations(ctx *fiber.Ctx) error {

	name, err := url.PathUnescape(ctx.Params("name"))
	if err != nil || name == "" {
		return errors.New(lcferrors.ErrorValidationError)
	}

	if cs.NATSConn == nil {
		return errors.New(lcferrors.ErrorServiceUnavailable)
	}

	svc := handlers_flows.NewNATSFlowService(cs.NATSConn)

	resp, err := svc.ParseOperations(&config.ParseOperationsRequest{Integration: name})
	if err != nil {
		return cs.busError("ParseOperations", err)
	}

	return ctx.JSON(fiber.Map{"Result": resp})
}

// Generate asks a stubgen worker to generate SDK stubs for an integration
// and returns the generated files inline.
func (cs *Config) Generate(ctx *fiber.Ctx) error {

	var req config.GenerateStubsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.New(lcferrors.ErrorValidationError)
	}

	if req.Integration == "" {
		return errors.New(lcferrors.ErrorMissingParameter)
	}

	if cs.NATSConn == nil {
		return errors.New(lcferrors.ErrorServiceUnavailable)
	}

	svc := handlers_flows.NewNATSFlowService(cs.NATSConn)

	resp, err := svc.GenerateStubs(&req)
	if err != nil {
		return cs.busError("GenerateStubs", err)
	}

	return ctx.JSON(fiber.Map{"Result": resp})
}

// Package streams a published package archive to the client.
func (cs *Config) Package(ctx *fiber.Ctx) error {

	file, err := url.PathUnescape(ctx.Params("file"))
	if err != nil || file == "" {
		return errors.New(lcferrors.ErrorValidationError)
	}

	// Package keys are flat, reject anything that walks the store
	if strings.ContainsAny(file, "/\\") || strings.Contains(file, "..") {
		return errors.New(lcferrors.ErrorValidationError)
	}

	obj, err := cs.Store.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(cs.bucket()),
		Key:    aws.String(file),
	})
	if err != nil {
		if pkgstore.IsNoSuchKeyError(err) {
			return lcferrors.NewErrorf(lcferrors.ErrorPackageNotFound, "package %s not published", file)
		}
		slog.Error("Package fetch failed", "key", file, "err", err)
		return errors.New(lcferrors.ErrorStorageFailure)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		slog.Error("Package read failed", "key", file, "err", err)
		return errors.New(lcferrors.ErrorStorageFailure)
	}

	ctx.Set("Content-Type", "application/zip")
	return ctx.Send(data)
}

// busError maps a worker error onto a catalog response. Known codes pass
// through so the client sees what the worker reported, anything else reads
// as the bus being unavailable.
func (cs *Config) busError(op string, err error) error {

	var lcfErr *lcferrors.LCFError
	if errors.As(err, &lcfErr) {
		return lcfErr
	}

	if _, exists := lcferrors.ErrorLookup[err.Error()]; exists {
		return err
	}

	slog.Error("Flow service request failed", "op", op, "err", err)
	return errors.New(lcferrors.ErrorServiceUnavailable)
}

func (cs *Config) ErrorHandler(ctx *fiber.Ctx, err error) error {

	slog.Debug("ErrorHandler", "path", ctx.Path(), "error", err.Error())

	// Route misses and transport-level failures surface as fiber errors,
	// keep their status and plain text body
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).SendString(fiberErr.Message)
	}

	// Get the request ID
	var requestId = uuid.NewString()
	requestId = ctx.Get("x-request-id", requestId)

	code := err.Error()
	detail := ""

	var lcfErr *lcferrors.LCFError
	if errors.As(err, &lcfErr) {
		code = lcfErr.Code
		detail = lcfErr.Detail
	}

	// Check if the error lookup exists
	errorMsg, exists := lcferrors.ErrorLookup[code]
	if !exists {
		slog.Warn("Unknown error code", "error", code)
		code = lcferrors.ErrorInternalFailure
		errorMsg = lcferrors.ErrorLookup[code]
		detail = ""
	}

	if errorMsg.HTTPCode == 0 {
		errorMsg.HTTPCode = 500
	}

	message := errorMsg.Message
	if detail != "" {
		message = detail
	}

	return ctx.Status(errorMsg.HTTPCode).JSON(fiber.Map{
		"Error": fiber.Map{
			"Code":    code,
			"Message": message,
		},
		"RequestId": requestId,
	})
}

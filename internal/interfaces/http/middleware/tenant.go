package middleware

import (
	"net/http"
	"strings"

	"github.com/corebank/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Keys under which tenant information is stored in gin.Context.
const (
	TenantIDKey     = "tenant_id"
	TenantCodeKey   = "tenant_code"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantInfo identifies a validated tenant.
type TenantInfo struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// TenantExtractor pulls a tenant identifier out of an incoming request.
type TenantExtractor interface {
	ExtractTenantID(c *gin.Context) (string, error)
}

// TenantValidator checks that an extracted tenant exists and is active.
type TenantValidator interface {
	ValidateTenant(tenantID string) (*TenantInfo, error)
}

// TenantMiddlewareConfig controls how the tenant is resolved.
type TenantMiddlewareConfig struct {
	// HeaderEnabled reads the tenant from the X-Tenant-ID header.
	HeaderEnabled bool
	// SubdomainEnabled derives the tenant from the request host.
	SubdomainEnabled bool
	// BaseDomain is stripped from the host when resolving subdomains,
	// e.g. "bank.example.com".
	BaseDomain string
	// SkipPaths are served without tenant context, e.g. health probes.
	SkipPaths []string
	// Required rejects requests that carry no tenant.
	Required bool
	// Validator, when set, confirms the tenant exists and is active.
	Validator TenantValidator
	// Logger for middleware logging.
	Logger *zap.Logger
}

// DefaultTenantConfig requires a header-supplied tenant on everything
// except the health and metrics endpoints.
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		HeaderEnabled:    true,
		SubdomainEnabled: false,
		BaseDomain:       "",
		SkipPaths:        []string{"/health", "/healthz", "/ready", "/metrics", "/api/v1/health"},
		Required:         true,
		Validator:        nil,
		Logger:           nil,
	}
}

// TenantMiddleware extracts tenant information from the request.
// The X-Tenant-ID header wins over the subdomain.
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig builds the middleware from an explicit config.
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pathSkipsTenant(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		tenantID, extractionMethod := resolveTenantID(c, cfg)

		if tenantID != "" {
			if err := validateTenantIDFormat(tenantID); err != nil {
				respondUnauthorized(c, "Invalid tenant ID format")
				return
			}
		}

		if tenantID == "" && cfg.Required {
			respondUnauthorized(c, "Tenant identification required")
			return
		}

		var tenantInfo *TenantInfo
		if tenantID != "" && cfg.Validator != nil {
			var err error
			tenantInfo, err = cfg.Validator.ValidateTenant(tenantID)
			if err != nil {
				log := cfg.Logger
				if log == nil {
					log = logger.FromContext(c.Request.Context())
				}
				log.Warn("Tenant validation failed",
					zap.String("tenant_id", tenantID),
					zap.Error(err),
				)
				respondUnauthorized(c, "Invalid or inactive tenant")
				return
			}
		}

		if tenantID != "" {
			c.Set(TenantIDKey, tenantID)
			if tenantInfo != nil {
				c.Set(TenantCodeKey, tenantInfo.Code)
			}

			// Propagate into the request context so services and
			// their log lines see the tenant without gin.
			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithTenantID(ctx, log, tenantID)
			c.Request = c.Request.WithContext(ctx)

			if cfg.Logger != nil {
				cfg.Logger.Debug("Tenant identified",
					zap.String("tenant_id", tenantID),
					zap.String("method", extractionMethod),
				)
			}
		}

		c.Next()
	}
}

func pathSkipsTenant(skipPaths []string, path string) bool {
	for _, skipPath := range skipPaths {
		if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
			return true
		}
	}
	return false
}

// resolveTenantID tries each enabled extraction source in priority
// order and reports which one produced the ID.
func resolveTenantID(c *gin.Context, cfg TenantMiddlewareConfig) (string, string) {
	if cfg.HeaderEnabled {
		if headerTenantID := c.GetHeader(TenantHeaderKey); headerTenantID != "" {
			return headerTenantID, "header"
		}
	}

	if cfg.SubdomainEnabled && cfg.BaseDomain != "" {
		if subdomainTenantID := extractTenantFromSubdomain(c.Request.Host, cfg.BaseDomain); subdomainTenantID != "" {
			return subdomainTenantID, "subdomain"
		}
	}

	return "", ""
}

// extractTenantFromSubdomain resolves "acme.corebank.io" against the
// base domain "corebank.io" to the tenant code "acme".
func extractTenantFromSubdomain(host, baseDomain string) string {
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	if !strings.HasSuffix(host, baseDomain) {
		return ""
	}

	subdomain := strings.TrimSuffix(host, "."+baseDomain)
	if subdomain == host || subdomain == "" || subdomain == "www" {
		return ""
	}

	// Multi-level subdomains resolve to their leftmost label.
	parts := strings.Split(subdomain, ".")
	return parts[0]
}

// Tenant IDs on the wire must be UUIDs.
func validateTenantIDFormat(tenantID string) error {
	_, err := uuid.Parse(tenantID)
	return err
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetTenantID reads the tenant ID the middleware stored, or "".
func GetTenantID(c *gin.Context) string {
	if tenantID, exists := c.Get(TenantIDKey); exists {
		if tid, ok := tenantID.(string); ok {
			return tid
		}
	}
	return ""
}

// GetTenantUUID parses the stored tenant ID. A missing tenant yields
// uuid.Nil without an error.
func GetTenantUUID(c *gin.Context) (uuid.UUID, error) {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(tenantID)
}

// GetTenantCode reads the validated tenant's code, or "".
func GetTenantCode(c *gin.Context) string {
	if tenantCode, exists := c.Get(TenantCodeKey); exists {
		if code, ok := tenantCode.(string); ok {
			return code
		}
	}
	return ""
}

// MustGetTenantID retrieves the tenant ID or panics. Use it only in
// handlers behind the required tenant middleware.
func MustGetTenantID(c *gin.Context) string {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		panic("tenant_id not found in context")
	}
	return tenantID
}

// MustGetTenantUUID is the UUID counterpart of MustGetTenantID.
func MustGetTenantUUID(c *gin.Context) uuid.UUID {
	tenantUUID, err := GetTenantUUID(c)
	if err != nil || tenantUUID == uuid.Nil {
		panic("valid tenant_id not found in context")
	}
	return tenantUUID
}

// OptionalTenantMiddleware resolves the tenant when present but lets
// anonymous requests through.
func OptionalTenantMiddleware() gin.HandlerFunc {
	cfg := DefaultTenantConfig()
	cfg.Required = false
	return TenantMiddlewareWithConfig(cfg)
}

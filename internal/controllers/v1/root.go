package v1

import (
	"net/http"

	"github.com/subtrackd/backend/internal/httputil"
	"github.com/subtrackd/backend/internal/models"
	"github.com/gin-gonic/gin"
)

func RegisterRootRoutes(r *gin.RouterGroup) {
	r.GET("", Get)
	r.DELETE("", Cleanup)
	r.OPTIONS("", Options)
}

type Response struct {
	Links Links `json:"links"` // Links for the v1 API
}

type Links struct {
	Subscriptions string `json:"subscriptions" example:"https://example.com/api/v1/subscriptions"` // URL of Subscription collection endpoint
	Categories    string `json:"categories" example:"https://example.com/api/v1/categories"`       // URL of Category collection endpoint
	Budgets       string `json:"budgets" example:"https://example.com/api/v1/budgets"`             // URL of Budget collection endpoint
	Rollover      string `json:"rollover" example:"https://example.com/api/v1/rollover"`           // URL of the rollover ledger endpoint
	Stats         string `json:"stats" example:"https://example.com/api/v1/stats"`                 // URL of the statistics endpoint
	Export        string `json:"export" example:"https://example.com/api/v1/export"`               // URL of the export endpoint
}

// Get returns the link list for v1
//
//	@Summary		v1 API
//	@Description	Returns general information about the v1 API
//	@Tags			v1
//	@Success		200	{object}	Response
//	@Router			/v1 [get]
func Get(c *gin.Context) {
	url := c.GetString(string(models.DBContextURL))

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Subscriptions: url + "/v1/subscriptions",
			Categories:    url + "/v1/categories",
			Budgets:       url + "/v1/budgets",
			Rollover:      url + "/v1/rollover",
			Stats:         url + "/v1/stats",
			Export:        url + "/v1/export",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v1
//	@Success		204
//	@Router			/v1 [options]
func Options(c *gin.Context) {
	httputil.OptionsGetDelete(c)
}

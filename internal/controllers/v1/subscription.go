package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subtrackd/backend/internal/httputil"
	"github.com/subtrackd/backend/internal/models"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// RegisterSubscriptionRoutes registers the routes for subscriptions
// with the RouterGroup that is passed.
func RegisterSubscriptionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsSubscriptionList)
		r.GET("", GetSubscriptions)
		r.POST("", CreateSubscriptions)
	}

	// Subscription with ID
	{
		r.OPTIONS("/:id", OptionsSubscriptionDetail)
		r.GET("/:id", GetSubscription)
		r.PATCH("/:id", UpdateSubscription)
		r.DELETE("/:id", DeleteSubscription)
	}

	// Lifecycle operations
	{
		r.OPTIONS("/:id/pause", OptionsSubscriptionLifecycle)
		r.POST("/:id/pause", PauseSubscription)
		r.OPTIONS("/:id/resume", OptionsSubscriptionLifecycle)
		r.POST("/:id/resume", ResumeSubscription)
		r.OPTIONS("/:id/skip", OptionsSubscriptionLifecycle)
		r.POST("/:id/skip", SkipSubscriptionPayment)
		r.OPTIONS("/:id/reactivate", OptionsSubscriptionLifecycle)
		r.POST("/:id/reactivate", ReactivateSubscription)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Subscriptions
// @Success		204
// @Router			/v1/subscriptions [options]
func OptionsSubscriptionList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Subscriptions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id} [options]
func OptionsSubscriptionDetail(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.Subscription{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Subscriptions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id}/pause [options]
func OptionsSubscriptionLifecycle(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.First(&models.Subscription{}, uri.ID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	httputil.OptionsPost(c)
}

// @Summary		Create subscriptions
// @Description	Creates new subscriptions
// @Tags			Subscriptions
// @Produce		json
// @Success		201				{object}	SubscriptionCreateResponse
// @Failure		400				{object}	SubscriptionCreateResponse
// @Failure		404				{object}	SubscriptionCreateResponse
// @Failure		500				{object}	SubscriptionCreateResponse
// @Param			subscriptions	body		[]SubscriptionEditable	true	"Subscriptions"
// @Router			/v1/subscriptions [post]
func CreateSubscriptions(c *gin.Context) {
	var editables []SubscriptionEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &editables)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SubscriptionCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := SubscriptionCreateResponse{}

	for _, editable := range editables {
		subscription := editable.model()

		err = models.DB.Create(&subscription).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		data := newSubscription(c, subscription)
		r.Data = append(r.Data, SubscriptionResponse{Data: &data})
	}

	c.JSON(status, r)
}

// @Summary		Get subscriptions
// @Description	Returns a list of subscriptions
// @Tags			Subscriptions
// @Produce		json
// @Success		200	{object}	SubscriptionListResponse
// @Failure		400	{object}	SubscriptionListResponse
// @Failure		500	{object}	SubscriptionListResponse
// @Router			/v1/subscriptions [get]
// @Param			name			query	string	false	"Filter by name"
// @Param			currency		query	string	false	"Filter by currency code"
// @Param			category		query	string	false	"Filter by category ID"
// @Param			billingCycle	query	string	false	"Filter by billing cycle"
// @Param			active			query	bool	false	"Is the subscription active?"
// @Param			expiringWithin	query	int		false	"Only active subscriptions with a payment due within this many days"
// @Param			offset			query	uint	false	"The offset of the first Subscription returned. Defaults to 0."
// @Param			limit			query	int		false	"Maximum number of Subscriptions to return. Defaults to 50."
func GetSubscriptions(c *gin.Context) {
	var filter SubscriptionQueryFilter

	// Every parameter is bound into a string, so this will always succeed
	_ = c.Bind(&filter)

	// Get the fields that we are filtering for
	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	// Convert the QueryFilter to a Create struct
	filterModel, err := filter.model()
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionListResponse{
			Error: &s,
		})
		return
	}

	q := models.DB.
		Preload("Category").
		Order("name ASC").
		Where(&filterModel, queryFields...)

	if slices.Contains(setFields, "Name") {
		q = q.Where("name LIKE ?", fmt.Sprintf("%%%s%%", filter.Name))
	}

	// The expiring filter only makes sense for active subscriptions
	// with a known payment date
	if slices.Contains(setFields, "ExpiringWithin") {
		now := time.Now().UTC()
		q = q.Where(
			"active = ? AND next_payment_date IS NOT NULL AND next_payment_date >= ? AND next_payment_date <= ?",
			true, now, now.AddDate(0, 0, filter.ExpiringWithin),
		)
	}

	// Set the offset. Does not need checking since the default is 0
	q = q.Offset(int(filter.Offset))

	// Default to 50 Subscriptions and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}
	q = q.Limit(limit)

	var subscriptions []models.Subscription
	err = q.Find(&subscriptions).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionListResponse{
			Error: &s,
		})
		return
	}

	var count int64
	err = q.Limit(-1).Offset(-1).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SubscriptionListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Subscription, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		data = append(data, newSubscription(c, subscription))
	}

	c.JSON(http.StatusOK, SubscriptionListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get subscription
// @Description	Returns a specific subscription
// @Tags			Subscriptions
// @Produce		json
// @Success		200	{object}	SubscriptionResponse
// @Failure		400	{object}	SubscriptionResponse
// @Failure		404	{object}	SubscriptionResponse
// @Failure		500	{object}	SubscriptionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id} [get]
func GetSubscription(c *gin.Context) {
	subscription, err := getSubscriptionResource(c)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionResponse{
			Error: &s,
		})
		return
	}

	data := newSubscription(c, subscription)
	c.JSON(http.StatusOK, SubscriptionResponse{Data: &data})
}

// @Summary		Update subscription
// @Description	Update an existing subscription. Only values to be updated need to be specified.
// @Tags			Subscriptions
// @Accept			json
// @Produce		json
// @Success		200				{object}	SubscriptionResponse
// @Failure		400				{object}	SubscriptionResponse
// @Failure		404				{object}	SubscriptionResponse
// @Failure		500				{object}	SubscriptionResponse
// @Param			id				path		URIID					true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			subscription	body		SubscriptionEditable	true	"Subscription"
// @Router			/v1/subscriptions/{id} [patch]
func UpdateSubscription(c *gin.Context) {
	subscription, err := getSubscriptionResource(c)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionResponse{
			Error: &s,
		})
		return
	}

	updateFields, err := httputil.GetBodyFields(c, SubscriptionEditable{})
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionResponse{
			Error: &s,
		})
		return
	}

	var data SubscriptionEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionResponse{
			Error: &s,
		})
		return
	}

	err = models.DB.Model(&subscription).Select("", updateFields...).Updates(data.model()).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionResponse{
			Error: &s,
		})
		return
	}

	r := newSubscription(c, subscription)
	c.JSON(http.StatusOK, SubscriptionResponse{Data: &r})
}

// @Summary		Delete subscription
// @Description	Deletes a subscription
// @Tags			Subscriptions
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id} [delete]
func DeleteSubscription(c *gin.Context) {
	subscription, err := getSubscriptionResource(c)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	err = models.DB.Delete(&subscription).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// @Summary		Pause subscription
// @Description	Pauses an active subscription. Pausing a paused subscription changes nothing.
// @Tags			Subscriptions
// @Produce		json
// @Success		200	{object}	SubscriptionResponse
// @Failure		400	{object}	SubscriptionResponse
// @Failure		404	{object}	SubscriptionResponse
// @Failure		500	{object}	SubscriptionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id}/pause [post]
func PauseSubscription(c *gin.Context) {
	lifecycleOperation(c, func(s *models.Subscription, db *gorm.DB) error {
		return s.Pause(db, time.Now())
	})
}

// @Summary		Resume subscription
// @Description	Resumes a paused subscription. The next payment date moves forward by the days the subscription was paused. Resuming an active subscription changes nothing.
// @Tags			Subscriptions
// @Produce		json
// @Success		200	{object}	SubscriptionResponse
// @Failure		400	{object}	SubscriptionResponse
// @Failure		404	{object}	SubscriptionResponse
// @Failure		500	{object}	SubscriptionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id}/resume [post]
func ResumeSubscription(c *gin.Context) {
	lifecycleOperation(c, func(s *models.Subscription, db *gorm.DB) error {
		return s.Resume(db, time.Now())
	})
}

// @Summary		Skip payment
// @Description	Skips the next payment of an active subscription, advancing the next payment date by one billing cycle.
// @Tags			Subscriptions
// @Produce		json
// @Success		200	{object}	SubscriptionResponse
// @Failure		400	{object}	SubscriptionResponse
// @Failure		404	{object}	SubscriptionResponse
// @Failure		500	{object}	SubscriptionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id}/skip [post]
func SkipSubscriptionPayment(c *gin.Context) {
	lifecycleOperation(c, func(s *models.Subscription, db *gorm.DB) error {
		return s.SkipNextPayment(db)
	})
}

// @Summary		Reactivate subscription
// @Description	Marks a lapsed subscription as active again without changing the next payment date.
// @Tags			Subscriptions
// @Produce		json
// @Success		200	{object}	SubscriptionResponse
// @Failure		400	{object}	SubscriptionResponse
// @Failure		404	{object}	SubscriptionResponse
// @Failure		500	{object}	SubscriptionResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/subscriptions/{id}/reactivate [post]
func ReactivateSubscription(c *gin.Context) {
	lifecycleOperation(c, func(s *models.Subscription, db *gorm.DB) error {
		return s.Reactivate(db)
	})
}

// lifecycleOperation loads the subscription from the URI, applies the
// operation and returns the updated resource.
func lifecycleOperation(c *gin.Context, operation func(*models.Subscription, *gorm.DB) error) {
	subscription, err := getSubscriptionResource(c)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionResponse{
			Error: &s,
		})
		return
	}

	err = operation(&subscription, models.DB)
	if err != nil {
		s := err.Error()
		c.JSON(status(err), SubscriptionResponse{
			Error: &s,
		})
		return
	}

	data := newSubscription(c, subscription)
	c.JSON(http.StatusOK, SubscriptionResponse{Data: &data})
}

// getSubscriptionResource loads the subscription identified by the
// URI's :id parameter.
func getSubscriptionResource(c *gin.Context) (models.Subscription, error) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		return models.Subscription{}, err
	}

	var subscription models.Subscription
	err = models.DB.Preload("Category").First(&subscription, uri.ID).Error
	if err != nil {
		return models.Subscription{}, err
	}

	return subscription, nil
}

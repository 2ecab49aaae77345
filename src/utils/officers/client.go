package officers

import (
	"context"
	"errors"
	"fmt"

	"github.com/saral-bhoomi/ledger/src/utils/config"
	"github.com/saral-bhoomi/ledger/src/utils/logger"

	"github.com/go-resty/resty/v2"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Identity of whoever triggered a ledger write
type Context struct {
	OfficerId string `json:"officer_id"`
	ProjectId string `json:"project_id"`
}

// Client resolves officer contexts against the case-management backend.
// Lookups are cached, officer assignments change rarely.
type Client struct {
	config *config.Config
	log    *logrus.Entry

	httpClient *resty.Client
	cache      *cache.Cache
}

func NewClient(config *config.Config) (self *Client) {
	self = new(Client)
	self.log = logger.NewSublogger("officers-client")
	self.config = config

	self.httpClient = resty.New().
		SetBaseURL(config.Officers.BaseUrl).
		SetTimeout(config.Officers.RequestTimeout)

	self.cache = cache.New(config.Officers.CacheTtl, config.Officers.CacheCleanupInterval)

	return
}

func (self *Client) GetOfficerContext(ctx context.Context, officerId string) (officer *Context, err error) {
	if cached, ok := self.cache.Get(officerId); ok {
		return cached.(*Context), nil
	}

	resp, err := self.httpClient.R().
		SetContext(ctx).
		SetResult(Context{}).
		ForceContentType("application/json").
		SetHeader("Accept", "application/json").
		Get(fmt.Sprintf("/api/officers/%s/context", officerId))
	if err != nil {
		self.log.WithError(err).WithField("officer_id", officerId).Warn("Could not retrieve officer context")
		return
	}

	if !resp.IsSuccess() {
		self.log.WithField("statusCode", resp.StatusCode()).
			WithField("officer_id", officerId).
			Warn("Officer context request has not been successful")
		err = errors.New("officer context request has not been successful")
		return
	}

	officer, ok := resp.Result().(*Context)
	if !ok {
		err = errors.New("failed to parse officer context response")
		return
	}

	self.cache.Set(officerId, officer, cache.DefaultExpiration)
	return
}

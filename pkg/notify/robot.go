// Package notify posts text messages to a DingTalk-style chat robot webhook.
//
// Every request is signed with the robot's shared secret:
//
//	sign = urlescape(base64(hmac_sha256(secret, timestamp + "\n" + secret)))
//
// The endpoint allows 20 messages per minute per robot. Going over that throttles
// the robot for 10 minutes. Send does not retry or back off; WithRateLimit makes
// the client wait for a token before each send, which keeps callers under the limit.
package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/rand/v2"
	"net/url"
	"strconv"
	"time"
)

// ErrNoRobots is returned when a random pick is asked for from an empty list.
var ErrNoRobots = errors.New("no robots configured")

// Robot is a bot identity. It is immutable once built.
type Robot struct {
	Name   string `yaml:"name"   validate:"required"`
	Token  string `yaml:"token"  validate:"required"`
	Secret string `yaml:"secret" validate:"required"`
}

// String returns the robot name only, so tokens never end up in logs.
func (r Robot) String() string {
	return r.Name
}

// SignedParams are the query parameters of one signed request.
type SignedParams struct {
	Timestamp   string
	Sign        string
	AccessToken string
}

// Query encodes the params the way the endpoint expects them.
// Sign is already escaped, so it is appended verbatim.
func (p SignedParams) Query() string {
	return "access_token=" + url.QueryEscape(p.AccessToken) +
		"&timestamp=" + p.Timestamp +
		"&sign=" + p.Sign
}

// Sign derives the request params for the given instant.
func (r Robot) Sign(now time.Time) SignedParams {
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(r.Secret))
	mac.Write([]byte(timestamp + "\n" + r.Secret))
	sign := url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	return SignedParams{
		Timestamp:   timestamp,
		Sign:        sign,
		AccessToken: r.Token,
	}
}

// Pick chooses one robot uniformly at random. A nil rng uses the global source.
func Pick(robots []Robot, rng *rand.Rand) (Robot, error) {
	if len(robots) == 0 {
		return Robot{}, ErrNoRobots
	}
	if rng == nil {
		return robots[rand.IntN(len(robots))], nil
	}
	return robots[rng.IntN(len(robots))], nil
}

package routing

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"voip-routing/internal/models"
	"voip-routing/internal/store"
)

// DialStringTemplate is handed to the switch for every directory user.
const DialStringTemplate = "{sip_invite_domain=${domain_name}}sofia/internal/${dialed_user}@${domain_name}"

// DirectoryAnswer carries SIP digest credentials for one user.
type DirectoryAnswer struct {
	Domain      string
	Username    string
	Password    string
	A1Hash      string
	DialString  string
	UserContext string
	TenantID    string
	// Synthetic is set when the user does not exist and the credentials
	// were made up so the switch rejects the registration itself.
	Synthetic bool
}

// DirectoryResponder answers directory (REGISTER/auth) lookups.
type DirectoryResponder struct {
	// Secret keys the synthetic passwords of unknown users.
	Secret []byte
	Logger *slog.Logger
}

func (d *DirectoryResponder) Resolve(s store.DirectoryStore, tenant models.Tenant, username string) DirectoryAnswer {
	ans := DirectoryAnswer{
		Domain:      tenant.Domain,
		Username:    username,
		DialString:  DialStringTemplate,
		UserContext: tenant.Context(),
		TenantID:    tenant.ID,
	}

	if ext, ok := s.Extension(tenant.ID, username); ok {
		ans.Password = ext.Password
	} else {
		ans.Password = d.syntheticPassword(tenant.ID, username)
		ans.Synthetic = true
		d.logger().Info("directory user not found, answering with synthetic credentials",
			"tenant", tenant.ID,
			"user", username,
		)
	}

	ans.A1Hash = A1Hash(username, tenant.Domain, ans.Password)
	return ans
}

func (d *DirectoryResponder) syntheticPassword(tenantID, username string) string {
	mac := hmac.New(sha256.New, d.Secret)
	mac.Write([]byte(tenantID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(username))
	return hex.EncodeToString(mac.Sum(nil))
}

// A1Hash is the SIP digest HA1: lowercase hex MD5 of user:realm:password.
func A1Hash(username, realm, password string) string {
	sum := md5.Sum([]byte(username + ":" + realm + ":" + password))
	return hex.EncodeToString(sum[:])
}

func (d *DirectoryResponder) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

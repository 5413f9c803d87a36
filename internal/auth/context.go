package auth

import "github.com/gin-gonic/gin"

const identityKey = "identity"

// SetIdentity stores the caller in the gin context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// GetIdentity returns the authenticated caller, or false if the request was
// not authenticated.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	id, _ := GetIdentity(c)
	return id.UserID
}

// CanManagePractitioner reports whether the caller may change the schedule
// of practitionerID: staff may manage anyone, practitioners only themselves.
func CanManagePractitioner(c *gin.Context, practitionerID string) bool {
	id, ok := GetIdentity(c)
	if !ok {
		return false
	}
	switch id.Role {
	case RoleStaff:
		return true
	case RolePractitioner:
		return id.PractitionerID != "" && id.PractitionerID == practitionerID
	}
	return false
}

package backend

// AnonymousPrincipal is the principal used for unauthenticated calls.
const AnonymousPrincipal = "2vxsx-fae"

// Identity is the caller on whose behalf a remote call is made.
type Identity struct {
	Principal string
	// Token is forwarded as a bearer credential when set.
	Token string
}

func (i *Identity) PrincipalOrAnonymous() string {
	if i == nil || i.Principal == "" {
		return AnonymousPrincipal
	}
	return i.Principal
}

func (i *Identity) IsAnonymous() bool {
	return i.PrincipalOrAnonymous() == AnonymousPrincipal
}

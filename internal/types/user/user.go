package user

type Provider string

const (
	ProviderGithub  Provider = "github"
	ProviderTwitter Provider = "twitter"
	ProviderDiscord Provider = "discord"
	ProviderGoogle  Provider = "google"
	ProviderAuth0   Provider = "auth0"
	ProviderZitadel Provider = "zitadel"
	ProviderX       Provider = "x"
)

// Profile is the identity-provider profile kept by the user data canister.
type Profile struct {
	ID                string   `json:"id"`
	Origin            string   `json:"origin"`
	Provider          Provider `json:"provider"`
	Username          *string  `json:"username"`
	Name              *string  `json:"name"`
	AvatarURL         *string  `json:"avatar_url"`
	Bio               *string  `json:"bio"`
	Email             *string  `json:"email"`
	EmailVerified     *bool    `json:"email_verified"`
	FollowersCount    *uint64  `json:"followers_count"`
	FollowingCount    *uint64  `json:"following_count"`
	TweetCount        *uint64  `json:"tweet_count"`
	PublicRepos       *uint64  `json:"public_repos"`
	PublicGists       *uint64  `json:"public_gists"`
	Location          *string  `json:"location"`
	Website           *string  `json:"website"`
	Verified          *bool    `json:"verified"`
	ProviderCreatedAt *string  `json:"provider_created_at"`
	CreatedAt         int64    `json:"createdAt"`
}

type ProfileResponse struct {
	Principal string   `json:"principal"`
	Profile   *Profile `json:"profile"`
}

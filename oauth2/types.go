package oauth2

// ResponseType represents the OAuth 2.0 response type requested from the authorize endpoint.
type ResponseType string

const (
	// CodeResponseType asks for an authorization code that is exchanged at the token endpoint.
	// Example: /oauth2/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"

	// TokenResponseType asks for the access token directly in the redirect fragment.
	// Used by apps that receive the redirect on a custom URL scheme.
	TokenResponseType ResponseType = "token"
)

// ResponseModeType denotes how the authorization response parameters are returned to the client.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	// Example: http://localhost:53682/callback?code=ABC123&state=xyz
	QueryResponseMode ResponseModeType = "query"

	// FragmentResponseMode returns parameters in the URL fragment (after #).
	// Example: fgabc123://authorize#access_token=ABC123&expires_in=3600
	FragmentResponseMode ResponseModeType = "fragment"
)

// Display is the dialog presentation hint sent with every dialog and authorize URL.
const Display = "touch"

// Parameter names used in redirects and dialog URLs.
const (
	ParamAccessToken      = "access_token"
	ParamExpiresIn        = "expires_in"
	ParamCode             = "code"
	ParamState            = "state"
	ParamError            = "error"
	ParamErrorReason      = "error_reason"
	ParamErrorDescription = "error_description"
	ParamErrorCode        = "error_code"
	ParamErrorMessage     = "error_msg"
	ParamDisplay          = "display"
	ParamRedirectURI      = "redirect_uri"
	ParamCancelURL        = "cancel_url"
	ParamClientID         = "client_id"
	ParamScope            = "scope"
	ParamType             = "type"
)

// Error values that mean the user chose not to continue rather than something failing.
const (
	ErrorReasonUserDenied = "user_denied"
	ErrorAccessDenied     = "access_denied"
)

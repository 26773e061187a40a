package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.RedirectMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.RedirectMiddleware()...)) // For form_post response mode
	s.RegisterRouteFunc("GET "+RouteCancel, ChainMiddleware(s.CancelHandler(), s.RedirectMiddleware()...))
}

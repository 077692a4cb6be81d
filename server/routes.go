package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteRoot, ChainMiddleware(s.RootHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RequireDatabase)...))
	s.RegisterRouteFunc("GET "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware(s.RequireDatabase)...))
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteUsers, ChainMiddleware(s.ListUsersHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUser, ChainMiddleware(s.GetUserHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("PATCH "+RouteUserPermissions, ChainMiddleware(s.UpdatePermissionsHandler(), s.APIMiddleware(s.RequireDatabase)...))
}

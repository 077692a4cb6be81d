package server

// Route patterns served by the reference API
const (
	RouteRoot            = "/{$}"
	RouteLogin           = "/login"
	RouteRefresh         = "/refresh"
	RouteLogout          = "/logout"
	RouteUsers           = "/users"
	RouteUser            = "/users/{id}"
	RouteUserPermissions = "/users/{id}/permissions"
)

// README: HTTP router registration; delegates to module services.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"deliverycity/internal/http/handlers"
	"deliverycity/internal/http/middleware"
	"deliverycity/internal/maps"
	"deliverycity/internal/modules/courier"
	"deliverycity/internal/modules/customer"
	"deliverycity/internal/modules/dispatch"
	"deliverycity/internal/modules/location"
	"deliverycity/internal/modules/order"
	"deliverycity/internal/modules/restaurant"
	"deliverycity/internal/offline"
	"deliverycity/internal/session"
)

type RouterDeps struct {
	Orders      *order.Service
	Customers   *customer.Service
	Couriers    *courier.Service
	Restaurants *restaurant.Service
	Dispatch    *dispatch.Service
	Confirmer   *offline.DurableConfirmer
	Reconciler  *offline.Reconciler
	Offline     *offline.Store
	Estimator   *location.Estimator
	Geocode     *maps.GeocodeService

	JWTSecret string
	Log       *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	storefront := handlers.NewStorefrontHandler(deps.Restaurants, deps.Geocode)
	r.GET("/api/restaurants", storefront.ListRestaurants)
	r.GET("/api/restaurants/:id", storefront.GetRestaurant)
	r.GET("/api/restaurants/:id/menu", storefront.Menu)
	r.GET("/api/geocode/reverse", storefront.ReverseGeocode)

	auth := middleware.Auth(deps.JWTSecret)

	customerHandler := handlers.NewCustomerHandler(deps.Orders)
	customerGroup := r.Group("/api/orders", auth, middleware.RequireRole(session.RoleCustomer))
	customerGroup.POST("", customerHandler.Checkout)
	customerGroup.GET("", customerHandler.List)
	customerGroup.GET("/:id", customerHandler.Get)
	customerGroup.POST("/:id/cancel", customerHandler.Cancel)
	customerGroup.POST("/:id/rating", customerHandler.SubmitRating)

	profileHandler := handlers.NewProfileHandler(deps.Customers)
	profileGroup := r.Group("/api/customer/addresses", auth, middleware.RequireRole(session.RoleCustomer))
	profileGroup.GET("", profileHandler.ListAddresses)
	profileGroup.POST("", profileHandler.AddAddress)
	profileGroup.PUT("/:id", profileHandler.UpdateAddress)
	profileGroup.DELETE("/:id", profileHandler.RemoveAddress)

	restaurantHandler := handlers.NewRestaurantHandler(deps.Orders, deps.Restaurants)
	restaurantGroup := r.Group("/api/restaurant", auth, middleware.RequireRole(session.RoleRestaurant))
	restaurantGroup.GET("/orders", restaurantHandler.ListOrders)
	restaurantGroup.POST("/orders/:id/accept", restaurantHandler.Accept)
	restaurantGroup.POST("/orders/:id/ready", restaurantHandler.MarkReady)
	restaurantGroup.POST("/orders/:id/cancel", restaurantHandler.Cancel)
	restaurantGroup.GET("/menu", restaurantHandler.Menu)
	restaurantGroup.POST("/menu", restaurantHandler.AddProduct)
	restaurantGroup.PUT("/menu/:id", restaurantHandler.UpdateProduct)
	restaurantGroup.DELETE("/menu/:id", restaurantHandler.RemoveProduct)
	restaurantGroup.POST("/menu/describe", restaurantHandler.Describe)
	restaurantGroup.POST("/open", restaurantHandler.SetOpen)

	courierHandler := handlers.NewCourierHandler(
		deps.Orders, deps.Couriers, deps.Dispatch,
		deps.Confirmer, deps.Reconciler, deps.Offline, deps.Estimator,
	)
	courierGroup := r.Group("/api/courier", auth, middleware.RequireRole(session.RoleCourier))
	courierGroup.POST("/register", courierHandler.Register)
	courierGroup.GET("/profile", courierHandler.Profile)
	courierGroup.GET("/offers", courierHandler.Offers)
	courierGroup.POST("/orders/:id/accept", courierHandler.Accept)
	courierGroup.POST("/orders/:id/reject", courierHandler.Reject)
	courierGroup.POST("/orders/:id/pickup", courierHandler.VerifyPickup)
	courierGroup.POST("/orders/:id/deliver", courierHandler.VerifyDelivery)
	courierGroup.GET("/active_order", courierHandler.ActiveOrder)
	courierGroup.POST("/sync", courierHandler.Sync)
	courierGroup.PUT("/location", courierHandler.UpdatePosition)

	adminHandler := handlers.NewAdminHandler(deps.Orders, deps.Couriers, deps.Restaurants)
	adminGroup := r.Group("/api/admin", auth, middleware.RequireRole(session.RoleAdmin))
	adminGroup.POST("/orders/:id/cancel", adminHandler.CancelOrder)
	adminGroup.POST("/couriers/:id/approve", adminHandler.ApproveCourier)
	adminGroup.POST("/couriers/:id/block", adminHandler.BlockCourier)
	adminGroup.POST("/couriers/:id/balance", adminHandler.AdjustCourierBalance)
	adminGroup.POST("/restaurants", adminHandler.CreateRestaurant)

	return r
}

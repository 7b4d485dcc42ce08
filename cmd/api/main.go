package main

import (
	"log"
	"os"
	"strconv"

	_ "cmms-backend/api/swagger" // swagger docs
	"cmms-backend/internal/database"
	"cmms-backend/internal/handler"
	"cmms-backend/internal/middleware"
	"cmms-backend/internal/repository"
	"cmms-backend/internal/service"
	"cmms-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           CMMS API
// @version         1.0
// @description     Maintenance management API: work order lifecycle, preventive schedules, component wear tracking, spare parts and reporting.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "cmms"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Labor-hours threshold for the EWO closure guard; 0 disables it
	ewoThreshold := 8.0
	if raw := os.Getenv("EWO_THRESHOLD_HOURS"); raw != "" {
		parsed, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			log.Fatalf("Invalid EWO_THRESHOLD_HOURS %q: %v", raw, parseErr)
		}
		ewoThreshold = parsed
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Optional text generation backend for suggestions and report drafts
	var textgen service.TextGenerator
	if baseURL := os.Getenv("TEXTGEN_URL"); baseURL != "" {
		textgen = service.NewTextGenClient(baseURL, os.Getenv("TEXTGEN_API_KEY"))
	}

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	userService := service.NewUserService(userRepo, db)
	notificationService := service.NewNotificationService(db, wsHub)
	suggestionService := service.NewSuggestionService(db, textgen)
	workOrderService := service.NewWorkOrderService(db, notificationService, suggestionService, ewoThreshold)
	scheduleService := service.NewScheduleService(db, notificationService)
	componentService := service.NewComponentService(db, notificationService)
	ewoService := service.NewEWOService(db, notificationService, suggestionService)
	assetService := service.NewAssetService(db)
	sparePartService := service.NewSparePartService(db, notificationService)
	dashboardService := service.NewDashboardService(db)
	reportService := service.NewReportService(db)
	auditService := service.NewAuditService(db)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	workOrderHandler := handler.NewWorkOrderHandler(workOrderService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	componentHandler := handler.NewComponentHandler(componentService)
	ewoHandler := handler.NewEWOHandler(ewoService)
	assetHandler := handler.NewAssetHandler(assetService)
	sparePartHandler := handler.NewSparePartHandler(sparePartService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	reportHandler := handler.NewReportHandler(reportService)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	workOrderHandler.RegisterRoutes(root)
	scheduleHandler.RegisterRoutes(root)
	componentHandler.RegisterRoutes(root)
	ewoHandler.RegisterRoutes(root)
	assetHandler.RegisterRoutes(root)
	sparePartHandler.RegisterRoutes(root)
	notificationHandler.RegisterRoutes(root)
	dashboardHandler.RegisterRoutes(root)
	reportHandler.RegisterRoutes(root)
	suggestionHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

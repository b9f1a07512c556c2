package router

import (
	"net/http"
	"townhall/internal/handlers"
	"townhall/internal/middleware"
	"townhall/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps 路由需要的所有依赖
type Deps struct {
	DB       *gorm.DB
	Posts    *services.PostService
	Feed     *services.FeedService
	Comments *services.CommentService
	Polls    *services.PollService
	Media    *services.MediaService // nil when no object store is configured
	Users    *services.UserService
	Reports  *services.ReportService

	AdminToken     string
	CORSOrigins    []string
	MaxUploadBytes int64
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(d.CORSOrigins))
	r.MaxMultipartMemory = 8 << 20

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	postHandler := handlers.NewPostHandler(d.Posts, d.Feed)
	voteHandler := handlers.NewVoteHandler(d.Posts)
	commentHandler := handlers.NewCommentHandler(d.Comments)
	pollHandler := handlers.NewPollHandler(d.Polls)
	userHandler := handlers.NewUserHandler(d.Users)
	reportHandler := handlers.NewReportHandler(d.Reports)
	adminHandler := handlers.NewAdminHandler(d.Posts, d.Comments)

	r.GET("/healthz", healthz(d.DB))

	// 帖子 (Posts)
	posts := r.Group("/posts")
	{
		posts.POST("/create", postHandler.Create)
		posts.GET("/get", postHandler.List)
		posts.DELETE("/delete/:id", postHandler.Delete)
		posts.POST("/:postId/vote", voteHandler.Cast)
		posts.GET("/:postId/vote", voteHandler.Get)
	}

	// 评论 (Comments)
	comments := r.Group("/comments")
	{
		comments.POST("/create", commentHandler.Create)
		comments.GET("/post/:postId", commentHandler.ListByPost)
		comments.POST("/:id/vote", commentHandler.Vote)
		comments.DELETE("/:id/vote", commentHandler.Unvote)
		comments.PUT("/:id", commentHandler.Update)
		comments.DELETE("/delete/:id", commentHandler.Delete)
	}

	// 投票 (Polls)
	polls := r.Group("/polls")
	{
		polls.GET("/:id", pollHandler.Get)
		polls.POST("/create", pollHandler.Create)
		polls.PUT("/update/:id", pollHandler.Update)
		polls.DELETE("/delete/:id", pollHandler.Delete)
		polls.POST("/:id/vote", pollHandler.Vote)
		polls.DELETE("/:id/vote", pollHandler.Unvote)
		polls.POST("/votes/all", pollHandler.VotesForPolls)
	}

	if d.Media != nil {
		mediaHandler := handlers.NewMediaHandler(d.Media, d.MaxUploadBytes)
		media := r.Group("/media")
		{
			media.POST("/upload", mediaHandler.Upload)
			media.DELETE("/delete/:mediaId", mediaHandler.Delete)
		}
	}

	// 用户 (Users)
	users := r.Group("/users")
	{
		users.POST("/add", userHandler.SignIn)
		users.GET("/:id", userHandler.Profile)
		users.PUT("/:id", userHandler.UpdateProfile)
		users.GET("/:id/posts", userHandler.Posts)
		users.DELETE("/:id", userHandler.DeleteAccount)
	}

	// 举报 (Reports)
	report := r.Group("/report")
	{
		report.POST("/post", reportHandler.FlagPost)
		report.POST("/comment", reportHandler.FlagComment)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired(d.AdminToken))
	{
		admin.DELETE("/posts/:id", adminHandler.DeletePost)
		admin.DELETE("/comments/:id", adminHandler.DeleteComment)
	}
}

func healthz(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := gdb.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/personal-site/internal/application/usecase/site"
	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/domain/contact"
	"github.com/khoahotran/personal-site/internal/domain/experience"
	"github.com/khoahotran/personal-site/internal/domain/post"
	"github.com/khoahotran/personal-site/internal/domain/project"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/pkg/logger"
)

type RouterDeps struct {
	Config   config.Config
	Site     *site.SiteUseCase
	Registry *console.Registry
	Logger   logger.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	siteHandler := NewSiteHandler(d.Site, d.Logger)
	rssHandler := NewRSSHandler(d.Site, d.Logger)
	authHandler := NewAuthHandler(d.Registry, d.Logger)
	profileHandler := NewProfileHandler(d.Logger)

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), TracingMiddleware(), ErrorMiddleware(d.Logger))

	router.GET("/feed.xml", rssHandler.GenerateRSS)

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		public := api.Group("/site")
		{
			public.GET("/experiences", siteHandler.Experiences)
			public.GET("/projects", siteHandler.Projects)
			public.GET("/posts", siteHandler.Posts)
			public.GET("/qualifications", siteHandler.Qualifications)
			public.GET("/hero", siteHandler.Hero)
			public.POST("/contact", siteHandler.SubmitContact)
		}

		con := api.Group("/console")
		con.Use(ConsoleMiddleware(d.Registry, d.Config))
		{
			con.POST("/login", authHandler.Login)
			con.POST("/logout", authHandler.Logout)
			con.GET("/me", authHandler.Me)

			private := con.Group("")
			private.Use(AuthMiddleware())
			{
				private.GET("/profile", profileHandler.GetProfile)
				private.PUT("/profile", profileHandler.UpdateProfile)
				private.PUT("/profile/qualifications", profileHandler.SaveQualifications)
				private.GET("/profile/qualifications/new", profileHandler.NewQualification)

				NewCollectionHandler(func(c *console.Console) *manager.Manager[experience.Experience, experience.Form] {
					return c.Experiences
				}, d.Logger).Register(private.Group("/experiences"))
				NewCollectionHandler(func(c *console.Console) *manager.Manager[project.Project, project.Form] {
					return c.Projects
				}, d.Logger).Register(private.Group("/projects"))
				NewCollectionHandler(func(c *console.Console) *manager.Manager[post.Post, post.Form] {
					return c.Posts
				}, d.Logger).Register(private.Group("/posts"))
				NewCollectionHandler(func(c *console.Console) *manager.Manager[contact.Contact, contact.Form] {
					return c.Contacts
				}, d.Logger, "lastDays").Register(private.Group("/contacts"))
			}
		}
	}

	return router
}

package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/knothq/mailgraph/internal/storage"
)

type App struct {
	DBConn *pgxpool.Pool
	Queue  *amqp091.Channel
	Blobs  storage.BlobStorage
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	blobs storage.BlobStorage,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DBConn: db,
				Queue:  queue,
				Blobs:  blobs,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}

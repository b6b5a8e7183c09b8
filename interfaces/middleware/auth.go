package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"publisher/domain/dto"
	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/configuration"
	"publisher/infrastructure/logger"
)

// Auth validates the Bearer token and sets user_id (the token issuer) on the
// request context.
func Auth(userRepository repository.IUser) gin.HandlerFunc {
	unauthorized := dto.Res{ResponseCode: "401", ResponseMessage: "Unauthorized"}

	return func(ctx *gin.Context) {
		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		parts := strings.Split(authorization, "Bearer ")
		if len(parts) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		claims, token, err := parseClaims(parts[1], configuration.C.App.SecretKey)
		if err != nil || !token.Valid {
			res := unauthorized
			res.ResponseMessage = describeTokenError(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		user, err := userRepository.GetByUserName(ctx.Request.Context(), claims.UserName)
		if err != nil {
			logger.GetLogger().WithField("error", err.Error()).Error("auth user lookup failed")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.Res{ResponseCode: "500", ResponseMessage: "Internal Server Error"})
			return
		}
		if user == nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		ctx.Set("user_id", claims.Issuer)
		ctx.Next()
	}
}

func parseClaims(tokenString, secretKey string) (*model.UserClaims, *jwt.Token, error) {
	claims := &model.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	return claims, token, err
}

func describeTokenError(err error) string {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return "Unauthorized"
	}
	switch {
	case ve.Errors&jwt.ValidationErrorMalformed != 0:
		return "Malformed token"
	case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
		return "Token expired or not yet valid"
	default:
		return "Invalid token"
	}
}

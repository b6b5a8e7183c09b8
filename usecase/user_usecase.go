package usecase

import (
	"context"
	"time"

	"publisher/domain/dto"
	"publisher/domain/repository"
	"publisher/infrastructure/configuration"
	"publisher/infrastructure/logger"
	"publisher/infrastructure/utils"
)

const tokenLifetime = 72 * time.Hour

type IUserUsecase interface {
	Login(ctx context.Context, req dto.LoginRequest) dto.Res
}

type userUsecase struct {
	userRepo repository.IUser
}

func NewUserUsecase(userRepo repository.IUser) IUserUsecase {
	return &userUsecase{userRepo: userRepo}
}

func (u *userUsecase) Login(ctx context.Context, req dto.LoginRequest) dto.Res {
	var res dto.Res
	user, err := u.userRepo.Authenticate(ctx, req.UserName, req.Password)
	if err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("login lookup failed")
		res.ResponseCode = "500"
		res.ResponseMessage = "Internal Server Error"
		return res
	}
	if user == nil {
		res.ResponseCode = "401"
		res.ResponseMessage = "Invalid user name or password"
		return res
	}

	now := utils.GetCurrentTime()
	token, err := utils.GenerateToken(map[string]interface{}{
		"iss":       user.ID,
		"user_name": user.UserName,
		"iat":       now.Unix(),
		"exp":       now.Add(tokenLifetime).Unix(),
	}, configuration.C.App.SecretKey)
	if err != nil {
		res.ResponseCode = "500"
		res.ResponseMessage = "Internal Server Error"
		return res
	}

	res.ResponseCode = "200"
	res.ResponseMessage = "OK"
	res.Data = dto.LoginData{Token: token, UserID: user.ID, UserName: user.UserName}
	return res
}

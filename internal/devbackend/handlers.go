package devbackend

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/space-booking/internal/auth"
	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/repository"
	"github.com/spec-kit/space-booking/internal/service"
	apperrors "github.com/spec-kit/space-booking/pkg/util"
)

type handlers struct {
	auth         *service.AuthService
	users        *service.UserService
	spaces       *service.SpaceService
	reservations *service.ReservationService
	images       repository.ImageRepository
}

func (h *handlers) login(c *fiber.Ctx) error {
	var req domain.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	res, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": res, "message": "Login successful"})
}

func (h *handlers) register(c *fiber.Ctx) error {
	var req domain.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": user, "message": "User registered successfully"})
}

// Spaces are served as bare JSON, unlike the enveloped resources.
func (h *handlers) listSpaces(c *fiber.Ctx) error {
	spaces, err := h.spaces.List(c.UserContext(), "")
	if err != nil {
		return err
	}
	return c.JSON(spaces)
}

func (h *handlers) spacesByType(c *fiber.Ctx) error {
	spaceType, ok := domain.ParseSpaceType(c.Query("type"))
	if !ok {
		return apperrors.NewValidationError("type must be ROOM or TABLE", nil)
	}
	spaces, err := h.spaces.List(c.UserContext(), spaceType)
	if err != nil {
		return err
	}
	return c.JSON(spaces)
}

func (h *handlers) getSpace(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	space, err := h.spaces.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(space)
}

func (h *handlers) createSpace(c *fiber.Ctx) error {
	var input domain.SpaceInput
	image, err := multipartPayload(c, "space", &input)
	if err != nil {
		return err
	}
	space, err := h.spaces.Create(c.UserContext(), input, image)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": space, "message": "Space created"})
}

func (h *handlers) updateSpace(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var input domain.SpaceInput
	image, err := multipartPayload(c, "space", &input)
	if err != nil {
		return err
	}
	space, err := h.spaces.Update(c.UserContext(), id, input, image)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": space, "message": "Space updated"})
}

func (h *handlers) deleteSpace(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.spaces.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Space deleted"})
}

func (h *handlers) listReservations(c *fiber.Ctx) error {
	status, err := statusQuery(c)
	if err != nil {
		return err
	}
	list, err := h.reservations.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *handlers) myReservations(c *fiber.Ctx) error {
	status, err := statusQuery(c)
	if err != nil {
		return err
	}
	list, err := h.reservations.ListMine(c.UserContext(), actor(c), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *handlers) createReservation(c *fiber.Ctx) error {
	var req domain.ReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reservation, err := h.reservations.Create(c.UserContext(), actor(c), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": reservation, "message": "Reservation created"})
}

func (h *handlers) deleteReservation(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.reservations.Delete(c.UserContext(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Reservation deleted"})
}

func (h *handlers) listUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": users})
}

func (h *handlers) me(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), actor(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

func (h *handlers) updateMe(c *fiber.Ctx) error {
	var update domain.UserUpdate
	image, err := multipartPayload(c, "user", &update)
	if err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), actor(c).UserID, update, image)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user, "message": "Profile updated"})
}

func (h *handlers) deleteUser(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), actor(c).UserID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}

func (h *handlers) image(c *fiber.Ctx) error {
	img, err := h.images.Get(c.UserContext(), c.Params("key"))
	if err != nil {
		return apperrors.NewNotFound("image", nil)
	}
	if img.ContentType != "" {
		c.Set(fiber.HeaderContentType, img.ContentType)
	}
	return c.Send(img.Data)
}

func actor(c *fiber.Ctx) service.Actor {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{UserID: p.UserID, Username: p.Username, Admin: domain.IsAdminRole(p.Role)}
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return int64(id), nil
}

func statusQuery(c *fiber.Ctx) (domain.ReservationStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return "", nil
	}
	status, ok := domain.ParseReservationStatus(raw)
	if !ok {
		return "", apperrors.NewValidationError("status must be ACTIVE, COMPLETED or CANCELLED", nil)
	}
	return status, nil
}

// multipartPayload reads a JSON document from form field and an optional
// "file" part. Plain JSON bodies are accepted too.
func multipartPayload(c *fiber.Ctx, field string, out any) (*service.ImageUpload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := json.Unmarshal(c.Body(), out); err != nil {
			return nil, apperrors.NewValidationError("invalid payload", nil)
		}
		return nil, nil
	}

	if err := json.Unmarshal([]byte(c.FormValue(field)), out); err != nil {
		return nil, apperrors.NewValidationError("form field "+field+" must hold JSON", nil)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable file", nil)
	}
	return &service.ImageUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

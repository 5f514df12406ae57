package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"petsoft/internal/auth"
	"petsoft/internal/service"
	"petsoft/internal/storage"
)

const maxFormMemory = 1 << 20

func (h *Handler) listPets(c *gin.Context) {
	pets, err := h.pets.ListPets(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]PetResponse, len(pets))
	for i := range pets {
		resp[i] = petToResponse(pets[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getPet(c *gin.Context) {
	pet, err := h.pets.GetPet(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, petToResponse(*pet))
}

func (h *Handler) addPet(c *gin.Context) {
	raw, ok := petPayload(c)
	if !ok {
		return
	}
	if err := h.pets.AddPet(c.Request.Context(), raw); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (h *Handler) editPet(c *gin.Context) {
	raw, ok := petPayload(c)
	if !ok {
		return
	}
	if err := h.pets.EditPet(c.Request.Context(), c.Param("id"), raw); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) checkoutPet(c *gin.Context) {
	if err := h.pets.CheckoutPet(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) uploadImage(c *gin.Context) {
	if h.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Image uploads are not configured."})
		return
	}
	session, _ := auth.FromContext(c.Request.Context())

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image file is required."})
		return
	}
	if header.Size > storage.MaxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image is too large."})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read image."})
		return
	}
	defer f.Close()

	// trust the bytes, not the client supplied content type
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read image."})
		return
	}
	head = head[:n]

	url, err := h.images.PutImage(c.Request.Context(), session.UserID, storage.Image{
		ContentType: http.DetectContentType(head),
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(head), f),
	})
	switch {
	case errors.Is(err, storage.ErrUnsupportedImage):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image must be a JPEG, PNG, GIF or WebP file."})
	case errors.Is(err, storage.ErrImageTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Image is too large."})
	case err != nil:
		h.logger.WithError(err).WithField("user_id", session.UserID).Error("upload image")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not upload image."})
	default:
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}

// petPayload returns the request body in a shape validate.PetForm accepts:
// a decoded JSON object or the posted form values.
func petPayload(c *gin.Context) (any, bool) {
	if c.ContentType() == gin.MIMEJSON {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgInvalidPetData})
			return nil, false
		}
		return body, true
	}

	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.JSON(http.StatusBadRequest, gin.H{"message": service.MsgInvalidPetData})
		return nil, false
	}
	return c.Request.PostForm, true
}

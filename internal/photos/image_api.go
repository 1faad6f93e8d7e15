package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
)

const (
	imagesCacheExpire = 10 * 60 // seconds
	imagesCacheSize   = 64 * 1024 * 1024
	// freecache refuses entries bigger than 1/1024 of its size, its 24 byte entry header included
	imagesCacheMaxEntry = imagesCacheSize/1024 - 24
)

// ImageApi is the client of the external image API.
type ImageApi struct {
	baseURL    string
	httpClient *http.Client
	cache      *freecache.Cache
}

var _ Storage = (*ImageApi)(nil)

func NewImageApi(baseURL string, httpClient *http.Client) *ImageApi {
	return &ImageApi{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		cache:      freecache.NewCache(imagesCacheSize),
	}
}

type imagesResponse struct {
	Images []Photo `json:"images"`
}

func imagesCacheKey(userID string) []byte {
	return []byte("images::" + userID)
}

func (api *ImageApi) List(ctx context.Context, userID string) (_ []Photo, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "imageApi.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := imagesCacheKey(userID)
	if cached, err := api.cache.Get(cacheKey); err == nil {
		var images []Photo
		if err := json.Unmarshal(cached, &images); err == nil {
			log.Tracef("found images of %s in cache", userID)
			return fillSlots(images), nil
		} else {
			log.Errorf("unmarshal cached images of %s: %s", userID, err)
		}
	}

	respBytes, err := api.do(ctx, http.MethodGet, "/get_user_images/"+url.PathEscape(userID), "", nil)
	if err != nil {
		return nil, err
	}

	var resp imagesResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal images response: %w", err)
	}

	images := withoutLinkedData(resp.Images)
	api.cacheImages(cacheKey, userID, images)
	return fillSlots(images), nil
}

// withoutLinkedData drops the inline base64 of photos that can be fetched by URL
func withoutLinkedData(images []Photo) []Photo {
	out := make([]Photo, len(images))
	for i, img := range images {
		if img.URL != "" {
			img.Data = ""
		}
		out[i] = img
	}
	return out
}

func (api *ImageApi) cacheImages(cacheKey []byte, userID string, images []Photo) {
	cached, err := json.Marshal(images)
	if err != nil {
		log.Errorf("marshal images of %s: %s", userID, err)
		return
	}
	if len(cacheKey)+len(cached) > imagesCacheMaxEntry {
		log.Debugf("images of %s too large to cache: %d bytes", userID, len(cached))
		return
	}
	if err := api.cache.Set(cacheKey, cached, imagesCacheExpire); err != nil {
		log.Warnf("set images cache of %s: %s", userID, err)
	}
}

func (api *ImageApi) Init(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "imageApi.init")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	defer api.cache.Del(imagesCacheKey(userID))
	_, err = api.do(ctx, http.MethodPost, "/create_user_future/"+url.PathEscape(userID), "", nil)
	return err
}

func (api *ImageApi) Upload(ctx context.Context, userID string, upload Upload) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "imageApi.upload")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("uid", userID); err != nil {
		return fmt.Errorf("write uid field: %w", err)
	}
	if err := mw.WriteField("slot", strconv.Itoa(upload.Slot)); err != nil {
		return fmt.Errorf("write slot field: %w", err)
	}

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, upload.Name))
	partHeader.Set("Content-Type", upload.ContentType)
	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	defer api.cache.Del(imagesCacheKey(userID))
	_, err = api.do(ctx, http.MethodPost, "/upload_user_image", mw.FormDataContentType(), &body)
	return err
}

func (api *ImageApi) Delete(ctx context.Context, userID, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "imageApi.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	defer api.cache.Del(imagesCacheKey(userID))
	path := "/borrar_imagen/" + url.PathEscape(userID) + "/" + url.PathEscape(name)
	_, err = api.do(ctx, http.MethodPost, path, "", nil)
	return err
}

func (api *ImageApi) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, api.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image api response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrPhotoNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return respBytes, nil
}
